package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"github.com/signet-id/signet/events"
	"github.com/signet-id/signet/guard"
	"github.com/signet-id/signet/models"
	"github.com/signet-id/signet/registry"
)

var (
	ErrEmptyDID      = fmt.Errorf("%w: did is empty", registry.ErrValidation)
	ErrEmptyEntry    = fmt.Errorf("%w: entry is empty", registry.ErrValidation)
	ErrDIDTaken      = fmt.Errorf("%w: did is already registered", registry.ErrValidation)
	ErrHasDocument   = fmt.Errorf("%w: address already controls a document", registry.ErrValidation)
	ErrNotFound      = fmt.Errorf("%w: did document", registry.ErrNotFound)
	ErrNotController = fmt.Errorf("%w: caller does not control this document", registry.ErrUnauthorized)
	ErrDeactivated   = fmt.Errorf("%w: document is deactivated", registry.ErrState)
)

// Store keeps DID documents: one per controller address, keyed by DID
// string. Documents soft-delete on deactivation and stay resolvable.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	guard  *guard.Guard
	events *events.Manager
	cache  Cache
	now    registry.Clock

	mu sync.Mutex
}

type Args struct {
	Db        *gorm.DB
	Logger    *slog.Logger
	Guard     *guard.Guard
	Events    *events.Manager
	Clock     registry.Clock
	CacheSize int
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

	size := args.CacheSize
	if size == 0 {
		size = 1_000
	}

	return &Store{
		db:     args.Db,
		logger: logger.With("component", "identity"),
		guard:  args.Guard,
		events: args.Events,
		cache:  NewMemCache(size),
		now:    clock,
	}, nil
}

// authorize is the single ownership predicate for document mutations:
// the document's controller, or the registry owner.
func (s *Store) authorize(caller common.Address, doc *models.Document) error {
	if doc.Controller != registry.AddrKey(caller) && !s.guard.IsOwner(caller) {
		return ErrNotController
	}
	return nil
}

func (s *Store) Create(ctx context.Context, caller common.Address, did string, contexts []string, verificationMethods []string) (*DidDoc, error) {
	if err := s.guard.RequireActive(); err != nil {
		return nil, err
	}
	if did == "" {
		return nil, ErrEmptyDID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	controller := registry.AddrKey(caller)
	now := s.now().UTC()

	doc := models.Document{
		Did:                 did,
		Controller:          controller,
		Contexts:            contexts,
		VerificationMethods: verificationMethods,
		Created:             now,
		Updated:             now,
		Active:              true,
	}

	var evt *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Document
		if err := tx.First(&existing, "did = ?", did).Error; err == nil {
			return ErrDIDTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.First(&existing, "controller = ?", controller).Error; err == nil {
			return ErrHasDocument
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&doc).Error; err != nil {
			return err
		}

		var err error
		evt, err = s.events.Record(tx, events.KindIdentityCreated, events.Payload{
			"did":        did,
			"controller": controller,
			"timestamp":  now.Unix(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.BustAddr(controller)
	s.events.Publish(evt)

	return docView(&doc), nil
}

func (s *Store) Update(ctx context.Context, caller common.Address, did string, contexts []string, verificationMethods []string) (*DidDoc, error) {
	if err := s.guard.RequireActive(); err != nil {
		return nil, err
	}
	if did == "" {
		return nil, ErrEmptyDID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	var doc models.Document
	var evt *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.fetch(tx, did, &doc); err != nil {
			return err
		}
		if err := s.authorize(caller, &doc); err != nil {
			return err
		}
		if !doc.Active {
			return ErrDeactivated
		}

		doc.Contexts = contexts
		doc.VerificationMethods = verificationMethods
		doc.Updated = now
		if err := tx.Save(&doc).Error; err != nil {
			return err
		}

		var err error
		evt, err = s.events.Record(tx, events.KindIdentityUpdated, events.Payload{
			"did":       did,
			"timestamp": now.Unix(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.BustDoc(did)
	s.events.Publish(evt)

	return docView(&doc), nil
}

// Deactivate is irreversible. The document stays resolvable but rejects
// all further mutation.
func (s *Store) Deactivate(ctx context.Context, caller common.Address, did string) error {
	if err := s.guard.RequireActive(); err != nil {
		return err
	}
	if did == "" {
		return ErrEmptyDID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	var doc models.Document
	var evt *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.fetch(tx, did, &doc); err != nil {
			return err
		}
		if err := s.authorize(caller, &doc); err != nil {
			return err
		}
		if !doc.Active {
			return ErrDeactivated
		}

		doc.Active = false
		doc.Updated = now
		if err := tx.Save(&doc).Error; err != nil {
			return err
		}

		var err error
		evt, err = s.events.Record(tx, events.KindIdentityDeactivated, events.Payload{
			"did":       did,
			"timestamp": now.Unix(),
		})
		return err
	})
	if err != nil {
		return err
	}

	s.cache.BustDoc(did)
	s.events.Publish(evt)

	return nil
}

func (s *Store) AddVerificationMethod(ctx context.Context, caller common.Address, did string, verificationMethod string) (*DidDoc, error) {
	return s.appendEntry(ctx, caller, did, verificationMethod, events.KindVerificationMethodAdded)
}

func (s *Store) AddServiceEndpoint(ctx context.Context, caller common.Address, did string, serviceEndpoint string) (*DidDoc, error) {
	return s.appendEntry(ctx, caller, did, serviceEndpoint, events.KindServiceEndpointAdded)
}

func (s *Store) appendEntry(ctx context.Context, caller common.Address, did string, entry string, kind string) (*DidDoc, error) {
	if err := s.guard.RequireActive(); err != nil {
		return nil, err
	}
	if did == "" {
		return nil, ErrEmptyDID
	}
	if entry == "" {
		return nil, ErrEmptyEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	var doc models.Document
	var evt *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.fetch(tx, did, &doc); err != nil {
			return err
		}
		if err := s.authorize(caller, &doc); err != nil {
			return err
		}
		if !doc.Active {
			return ErrDeactivated
		}

		switch kind {
		case events.KindVerificationMethodAdded:
			doc.VerificationMethods = append(doc.VerificationMethods, entry)
		case events.KindServiceEndpointAdded:
			doc.Services = append(doc.Services, entry)
		}
		doc.Updated = now
		if err := tx.Save(&doc).Error; err != nil {
			return err
		}

		var err error
		evt, err = s.events.Record(tx, kind, events.Payload{
			"did":       did,
			"entry":     entry,
			"timestamp": now.Unix(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.BustDoc(did)
	s.events.Publish(evt)

	return docView(&doc), nil
}

func (s *Store) fetch(tx *gorm.DB, did string, doc *models.Document) error {
	if err := tx.First(doc, "did = ?", did).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) ResolveByDID(ctx context.Context, did string) (*DidDoc, error) {
	if did == "" {
		return nil, ErrEmptyDID
	}

	if doc, ok := s.cache.Doc(did); ok {
		return doc, nil
	}

	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "did = ?", did).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	view := docView(&doc)
	s.cache.PutDoc(did, view)

	return view, nil
}

func (s *Store) ResolveByAddress(ctx context.Context, addr common.Address) (*DidDoc, error) {
	key := registry.AddrKey(addr)

	if did, ok := s.cache.DidFor(key); ok {
		if doc, ok := s.cache.Doc(did); ok {
			return doc, nil
		}
	}

	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "controller = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	view := docView(&doc)
	s.cache.PutDoc(doc.Did, view)
	s.cache.PutAddr(key, doc.Did)

	return view, nil
}

func (s *Store) HasActive(ctx context.Context, addr common.Address) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("controller = ? AND active = ?", registry.AddrKey(addr), true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Document{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func docView(doc *models.Document) *DidDoc {
	return &DidDoc{
		Context:              doc.Contexts,
		Id:                   doc.Did,
		Controller:           doc.Controller,
		VerificationMethod:   doc.VerificationMethods,
		Authentication:       doc.Authentications,
		AssertionMethod:      doc.AssertionMethods,
		CapabilityInvocation: doc.CapabilityInvocations,
		CapabilityDelegation: doc.CapabilityDelegations,
		KeyAgreement:         doc.KeyAgreements,
		Service:              doc.Services,
		Created:              doc.Created.Unix(),
		Updated:              doc.Updated.Unix(),
		Active:               doc.Active,
	}
}
