package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/atomic"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/signet-id/signet/events"
	"github.com/signet-id/signet/models"
	"github.com/signet-id/signet/registry"
)

const pausedKey = "registry.paused"

var (
	ErrPaused        = fmt.Errorf("%w: registry is paused", registry.ErrUnavailable)
	ErrAlreadyPaused = fmt.Errorf("%w: registry is already paused", registry.ErrState)
	ErrNotPaused     = fmt.Errorf("%w: registry is not paused", registry.ErrState)
	ErrNotOwner      = fmt.Errorf("%w: caller is not the registry owner", registry.ErrUnauthorized)
)

// Guard holds the registry-wide access controls: the owner principal and
// the pause flag. The flag is mirrored to the settings table so a
// restart comes back up in the same state.
type Guard struct {
	db     *gorm.DB
	logger *slog.Logger
	events *events.Manager
	owner  common.Address
	paused *atomic.Bool

	mu sync.Mutex
}

type Args struct {
	Db     *gorm.DB
	Logger *slog.Logger
	Events *events.Manager
	Owner  common.Address
}

func New(args *Args) (*Guard, error) {
	if args.Db == nil {
		return nil, fmt.Errorf("db must be set")
	}
	if args.Events == nil {
		return nil, fmt.Errorf("events manager must be set")
	}
	if args.Owner == (common.Address{}) {
		return nil, fmt.Errorf("owner address must be set")
	}

	logger := args.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Guard{
		db:     args.Db,
		logger: logger.With("component", "guard"),
		events: args.Events,
		owner:  args.Owner,
		paused: atomic.NewBool(false),
	}

	var setting models.Setting
	if err := args.Db.First(&setting, "key = ?", pausedKey).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else if setting.Value == "1" {
		g.paused.Store(true)
	}

	return g, nil
}

func (g *Guard) Owner() common.Address {
	return g.owner
}

func (g *Guard) IsOwner(addr common.Address) bool {
	return addr == g.owner
}

func (g *Guard) RequireOwner(addr common.Address) error {
	if !g.IsOwner(addr) {
		return ErrNotOwner
	}
	return nil
}

func (g *Guard) Paused() bool {
	return g.paused.Load()
}

// RequireActive gates every mutating store operation. Reads never call
// it.
func (g *Guard) RequireActive() error {
	if g.paused.Load() {
		return ErrPaused
	}
	return nil
}

func (g *Guard) Pause(ctx context.Context, caller common.Address) error {
	return g.setPaused(ctx, caller, true)
}

func (g *Guard) Unpause(ctx context.Context, caller common.Address) error {
	return g.setPaused(ctx, caller, false)
}

func (g *Guard) setPaused(ctx context.Context, caller common.Address, paused bool) error {
	if err := g.RequireOwner(caller); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused.Load() == paused {
		if paused {
			return ErrAlreadyPaused
		}
		return ErrNotPaused
	}

	value := "0"
	kind := events.KindRegistryUnpaused
	if paused {
		value = "1"
		kind = events.KindRegistryPaused
	}

	var evt *models.Event
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&models.Setting{Key: pausedKey, Value: value}).Error
		if err != nil {
			return err
		}

		evt, err = g.events.Record(tx, kind, events.Payload{
			"by": registry.AddrKey(caller),
		})
		return err
	})
	if err != nil {
		return err
	}

	g.paused.Store(paused)
	g.events.Publish(evt)
	g.logger.Info("registry pause state changed", "paused", paused, "by", registry.AddrKey(caller))

	return nil
}
