package schema

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/crypto/sha3"
	"gorm.io/gorm"

	"github.com/signet-id/signet/events"
	"github.com/signet-id/signet/guard"
	"github.com/signet-id/signet/models"
	"github.com/signet-id/signet/registry"
)

// RefPrefix forms content-addressed references, e.g. "schema:9f86d0...".
const RefPrefix = "schema:"

var (
	ErrInvalidDocument = fmt.Errorf("%w: document is not a valid json schema", registry.ErrValidation)
	ErrInvalidRef      = fmt.Errorf("%w: malformed schema reference", registry.ErrValidation)
	ErrClaimsMismatch  = fmt.Errorf("%w: claims do not match the registered schema", registry.ErrValidation)
	ErrNotFound        = fmt.Errorf("%w: schema", registry.ErrNotFound)
)

// Store keeps owner-registered credential schemas, addressed by the
// Keccak-256 of their bytes. Registration is idempotent: the same
// document always maps to the same reference.
type Store struct {
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

func NewStore(args *Args) (*Store, error) {
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

	return &Store{
		db:     args.Db,
		logger: logger.With("component", "schema"),
		guard:  args.Guard,
		events: args.Events,
		now:    clock,
	}, nil
}

// Ref computes the content address of a schema document.
func Ref(doc []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(doc)
	return RefPrefix + hex.EncodeToString(h.Sum(nil))
}

func hashFromRef(ref string) (string, error) {
	if !strings.HasPrefix(ref, RefPrefix) {
		return "", ErrInvalidRef
	}
	hash := strings.TrimPrefix(ref, RefPrefix)
	if _, err := hex.DecodeString(hash); err != nil || len(hash) != 64 {
		return "", ErrInvalidRef
	}
	return hash, nil
}

func (s *Store) Register(ctx context.Context, caller common.Address, doc []byte) (string, error) {
	if err := s.guard.RequireActive(); err != nil {
		return "", err
	}
	if err := s.guard.RequireOwner(caller); err != nil {
		return "", err
	}

	if !json.Valid(doc) {
		return "", ErrInvalidDocument
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc)); err != nil {
		return "", ErrInvalidDocument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref := Ref(doc)
	hash := strings.TrimPrefix(ref, RefPrefix)
	now := s.now().UTC()

	var evt *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Schema
		if err := tx.First(&existing, "hash = ?", hash).Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err := tx.Create(&models.Schema{
			Hash:      hash,
			Document:  doc,
			CreatedBy: registry.AddrKey(caller),
			CreatedAt: now,
		}).Error
		if err != nil {
			return err
		}

		evt, err = s.events.Record(tx, events.KindSchemaRegistered, events.Payload{
			"ref":       ref,
			"by":        registry.AddrKey(caller),
			"timestamp": now.Unix(),
		})
		return err
	})
	if err != nil {
		return "", err
	}

	s.events.Publish(evt)

	return ref, nil
}

func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	hash, err := hashFromRef(ref)
	if err != nil {
		return nil, err
	}

	var row models.Schema
	if err := s.db.WithContext(ctx).First(&row, "hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return row.Document, nil
}

// CheckClaimsTx validates a claim set against the schema a reference
// points at. References outside the schema namespace, and references
// to schemas this registry does not hold, are treated as opaque and
// pass. Claims validate as a flat string-valued object.
func (s *Store) CheckClaimsTx(tx *gorm.DB, ref string, claims map[string]string) error {
	if !strings.HasPrefix(ref, RefPrefix) {
		return nil
	}

	hash, err := hashFromRef(ref)
	if err != nil {
		return err
	}

	var row models.Schema
	if err := tx.First(&row, "hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	object := make(map[string]any, len(claims))
	for key, value := range claims {
		object[key] = value
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(row.Document),
		gojsonschema.NewGoLoader(object),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClaimsMismatch, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrClaimsMismatch, strings.Join(details, "; "))
	}

	return nil
}
