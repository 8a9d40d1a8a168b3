package issuer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/signet-id/signet/events"
	"github.com/signet-id/signet/guard"
	"github.com/signet-id/signet/models"
	"github.com/signet-id/signet/registry"
)

var (
	ErrEmptyDID  = fmt.Errorf("%w: issuer did is empty", registry.ErrValidation)
	ErrEmptyType = fmt.Errorf("%w: credential type is empty", registry.ErrValidation)
	ErrNotFound  = fmt.Errorf("%w: issuer", registry.ErrNotFound)
)

// SeedTypes are marked supported on first start.
var SeedTypes = []string{
	"IdentityCredential",
	"EducationalCredential",
	"ProfessionalCredential",
	"MembershipCredential",
}

// Directory is the owner-managed allow-list of credential issuers and
// the set of supported credential types. An authorized issuer always
// carries a non-empty DID; deauthorizing clears it.
type Directory struct {
	db     *gorm.DB
	logger *slog.Logger
	guard  *guard.Guard
	events *events.Manager
	now    registry.Clock

	mu sync.Mutex
}

type Args struct {
	Db     *gorm.DB
	Logger *slog.Logger
	Guard  *guard.Guard
	Events *events.Manager
	Clock  registry.Clock
}

func NewDirectory(args *Args) (*Directory, error) {
	if args.Db == nil {
		return nil, fmt.Errorf("db must be set")
	}
	if args.Guard == nil {
		return nil, fmt.Errorf("guard must be set")
	}
	if args.Events == nil {
		return nil, fmt.Errorf("events manager must be set")
	}

	logger := args.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := args.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Directory{
		db:     args.Db,
		logger: logger.With("component", "issuer"),
		guard:  args.Guard,
		events: args.Events,
		now:    clock,
	}, nil
}

// Seed inserts the well-known supported types, skipping any that
// already have a row. Runs at startup, emits nothing.
func (d *Directory) Seed(ctx context.Context) error {
	now := d.now().UTC()
	for _, name := range SeedTypes {
		err := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.CredentialType{
			Name:      name,
			Supported: true,
			UpdatedAt: now,
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Directory) Authorize(ctx context.Context, caller common.Address, addr common.Address, did string) error {
	if err := d.guard.RequireActive(); err != nil {
		return err
	}
	if err := d.guard.RequireOwner(caller); err != nil {
		return err
	}
	if did == "" {
		return ErrEmptyDID
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := registry.AddrKey(addr)
	now := d.now().UTC()

	var evt *models.Event
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"did", "authorized", "updated_at"}),
		}).Create(&models.Issuer{
			Address:    key,
			Did:        did,
			Authorized: true,
			UpdatedAt:  now,
		}).Error
		if err != nil {
			return err
		}

		evt, err = d.events.Record(tx, events.KindIssuerAuthorized, events.Payload{
			"address":   key,
			"did":       did,
			"timestamp": now.Unix(),
		})
		return err
	})
	if err != nil {
		return err
	}

	d.events.Publish(evt)

	return nil
}

func (d *Directory) Deauthorize(ctx context.Context, caller common.Address, addr common.Address) error {
	if err := d.guard.RequireActive(); err != nil {
		return err
	}
	if err := d.guard.RequireOwner(caller); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := registry.AddrKey(addr)
	now := d.now().UTC()

	var evt *models.Event
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var iss models.Issuer
		if err := tx.First(&iss, "address = ?", key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !iss.Authorized {
			return ErrNotFound
		}

		iss.Authorized = false
		iss.Did = ""
		iss.UpdatedAt = now
		if err := tx.Save(&iss).Error; err != nil {
			return err
		}

		var err error
		evt, err = d.events.Record(tx, events.KindIssuerDeauthorized, events.Payload{
			"address":   key,
			"timestamp": now.Unix(),
		})
		return err
	})
	if err != nil {
		return err
	}

	d.events.Publish(evt)

	return nil
}

func (d *Directory) SetTypeSupport(ctx context.Context, caller common.Address, name string, supported bool) error {
	if err := d.guard.RequireActive(); err != nil {
		return err
	}
	if err := d.guard.RequireOwner(caller); err != nil {
		return err
	}
	if name == "" {
		return ErrEmptyType
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().UTC()

	var evt *models.Event
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"supported", "updated_at"}),
		}).Create(&models.CredentialType{
			Name:      name,
			Supported: supported,
			UpdatedAt: now,
		}).Error
		if err != nil {
			return err
		}

		evt, err = d.events.Record(tx, events.KindCredentialTypeChanged, events.Payload{
			"type":      name,
			"supported": supported,
			"timestamp": now.Unix(),
		})
		return err
	})
	if err != nil {
		return err
	}

	d.events.Publish(evt)

	return nil
}

func (d *Directory) Get(ctx context.Context, addr common.Address) (*models.Issuer, error) {
	var iss models.Issuer
	if err := d.db.WithContext(ctx).First(&iss, "address = ?", registry.AddrKey(addr)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &iss, nil
}

func (d *Directory) IsAuthorized(ctx context.Context, addr common.Address) (bool, error) {
	iss, err := d.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return iss.Authorized, nil
}

func (d *Directory) IsTypeSupported(ctx context.Context, name string) (bool, error) {
	var ct models.CredentialType
	if err := d.db.WithContext(ctx).First(&ct, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return ct.Supported, nil
}

// Types lists the currently supported credential type names.
func (d *Directory) Types(ctx context.Context) ([]string, error) {
	var names []string
	err := d.db.WithContext(ctx).
		Model(&models.CredentialType{}).
		Where("supported = ?", true).
		Order("name asc").
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// IssuerTx reads an issuer row inside another store's transaction.
func (d *Directory) IssuerTx(tx *gorm.DB, address string) (string, bool, error) {
	var iss models.Issuer
	if err := tx.First(&iss, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return iss.Did, iss.Authorized, nil
}

// TypeSupportedTx reads type support inside another store's transaction.
func (d *Directory) TypeSupportedTx(tx *gorm.DB, name string) (bool, error) {
	var ct models.CredentialType
	if err := tx.First(&ct, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return ct.Supported, nil
}
