package credential

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

const counterName = "credential_seq"

var (
	ErrNotIssuer       = fmt.Errorf("%w: caller is not an authorized issuer", registry.ErrUnauthorized)
	ErrNotManager      = fmt.Errorf("%w: caller may not manage this credential", registry.ErrUnauthorized)
	ErrTypeUnsupported = fmt.Errorf("%w: credential type is not supported", registry.ErrValidation)
	ErrEmptySubject    = fmt.Errorf("%w: subject is empty", registry.ErrValidation)
	ErrClaimMismatch   = fmt.Errorf("%w: claim keys and values differ in length", registry.ErrValidation)
	ErrDuplicateClaim  = fmt.Errorf("%w: duplicate claim key", registry.ErrValidation)
	ErrPastExpiration  = fmt.Errorf("%w: expiration is not in the future", registry.ErrValidation)
	ErrEmptyProof      = fmt.Errorf("%w: zero-knowledge proof is empty", registry.ErrValidation)
	ErrNotFound        = fmt.Errorf("%w: credential", registry.ErrNotFound)
	ErrRevoked         = fmt.Errorf("%w: credential is revoked", registry.ErrState)
	ErrNotActive       = fmt.Errorf("%w: credential is not active", registry.ErrState)
	ErrNotSuspended    = fmt.Errorf("%w: credential is not suspended", registry.ErrState)
)

// Directory is the slice of the issuer directory the store consults
// while issuing and managing credentials. Lookups run inside the
// store's own transaction.
type Directory interface {
	IssuerTx(tx *gorm.DB, address string) (did string, authorized bool, err error)
	TypeSupportedTx(tx *gorm.DB, name string) (bool, error)
}

// SchemaRegistry validates claim sets against registered credential
// schemas. Unknown references are treated as opaque and pass.
type SchemaRegistry interface {
	CheckClaimsTx(tx *gorm.DB, ref string, claims map[string]string) error
}

// Store issues credentials with dense sequential ids and walks them
// through the active/suspended/revoked lifecycle. Claims keep their
// issuance order.
type Store struct {
	db        *gorm.DB
	logger    *slog.Logger
	guard     *guard.Guard
	events    *events.Manager
	directory Directory
	schemas   SchemaRegistry
	now       registry.Clock

	mu sync.Mutex
}

type Args struct {
	Db        *gorm.DB
	Logger    *slog.Logger
	Guard     *guard.Guard
	Events    *events.Manager
	Directory Directory
	Schemas   SchemaRegistry
	Clock     registry.Clock
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
	if args.Directory == nil {
		return nil, fmt.Errorf("issuer directory must be set")
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
		db:        args.Db,
		logger:    logger.With("component", "credential"),
		guard:     args.Guard,
		events:    args.Events,
		directory: args.Directory,
		schemas:   args.Schemas,
		now:       clock,
	}, nil
}

func (s *Store) Issue(ctx context.Context, caller common.Address, params IssueParams) (*View, error) {
	if err := s.guard.RequireActive(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	callerKey := registry.AddrKey(caller)
	now := s.now().UTC()

	var cred models.Credential
	var evt *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issuerDid, authorized, err := s.directory.IssuerTx(tx, callerKey)
		if err != nil {
			return err
		}
		if !authorized {
			return ErrNotIssuer
		}

		if err := s.validateIssue(tx, now, params.Type, params.Subject, params.Expiration); err != nil {
			return err
		}
		if len(params.ClaimKeys) != len(params.ClaimValues) {
			return ErrClaimMismatch
		}

		claims := make(map[string]string, len(params.ClaimKeys))
		for i, key := range params.ClaimKeys {
			if _, ok := claims[key]; ok {
				return fmt.Errorf("%w: %s", ErrDuplicateClaim, key)
			}
			claims[key] = params.ClaimValues[i]
		}

		if s.schemas != nil && params.SchemaRef != "" {
			if err := s.schemas.CheckClaimsTx(tx, params.SchemaRef, claims); err != nil {
				return err
			}
		}

		seq, err := s.nextSeq(tx)
		if err != nil {
			return err
		}

		cred = models.Credential{
			Seq:           seq,
			StringID:      StringID(seq),
			Types:         []string{BaseType, params.Type},
			Issuer:        issuerDid,
			IssuerAddress: callerKey,
			Subject:       params.Subject,
			IssuedAt:      now,
			ExpiresAt:     params.Expiration,
			Status:        StatusActive,
			SchemaRef:     params.SchemaRef,
			Proof:         params.Proof,
		}
		if err := tx.Create(&cred).Error; err != nil {
			return err
		}

		for i, key := range params.ClaimKeys {
			claim := models.Claim{
				CredentialSeq: seq,
				Key:           key,
				Position:      i,
				Value:         params.ClaimValues[i],
			}
			if err := tx.Create(&claim).Error; err != nil {
				return err
			}
		}

		evt, err = s.events.Record(tx, events.KindCredentialIssued, events.Payload{
			"id":        cred.Seq,
			"stringId":  cred.StringID,
			"issuer":    cred.Issuer,
			"subject":   cred.Subject,
			"type":      params.Type,
			"timestamp": now.Unix(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(evt)

	return credView(&cred), nil
}

// IssueWithZKProof issues a selective-disclosure credential: the proof
// payload stands in for claims, which stay off the registry entirely.
func (s *Store) IssueWithZKProof(ctx context.Context, caller common.Address, params ZKIssueParams) (*View, error) {
	if err := s.guard.RequireActive(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	callerKey := registry.AddrKey(caller)
	now := s.now().UTC()

	var cred models.Credential
	var evt *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issuerDid, authorized, err := s.directory.IssuerTx(tx, callerKey)
		if err != nil {
			return err
		}
		if !authorized {
			return ErrNotIssuer
		}

		if err := s.validateIssue(tx, now, params.Type, params.Subject, params.Expiration); err != nil {
			return err
		}
		if params.ZKProof == "" {
			return ErrEmptyProof
		}

		seq, err := s.nextSeq(tx)
		if err != nil {
			return err
		}

		cred = models.Credential{
			Seq:                 seq,
			StringID:            StringID(seq),
			Types:               []string{BaseType, params.Type},
			Issuer:              issuerDid,
			IssuerAddress:       callerKey,
			Subject:             params.Subject,
			IssuedAt:            now,
			ExpiresAt:           params.Expiration,
			Status:              StatusActive,
			SchemaRef:           params.SchemaRef,
			Proof:               params.Proof,
			ZKProof:             params.ZKProof,
			SelectiveDisclosure: true,
		}
		if err := tx.Create(&cred).Error; err != nil {
			return err
		}

		evt, err = s.events.Record(tx, events.KindCredentialIssued, events.Payload{
			"id":                  cred.Seq,
			"stringId":            cred.StringID,
			"issuer":              cred.Issuer,
			"subject":             cred.Subject,
			"type":                params.Type,
			"selectiveDisclosure": true,
			"timestamp":           now.Unix(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(evt)

	return credView(&cred), nil
}

func (s *Store) validateIssue(tx *gorm.DB, now time.Time, credType, subject string, expiration int64) error {
	supported, err := s.directory.TypeSupportedTx(tx, credType)
	if err != nil {
		return err
	}
	if credType == "" || !supported {
		return ErrTypeUnsupported
	}
	if subject == "" {
		return ErrEmptySubject
	}
	if expiration != 0 && expiration <= now.Unix() {
		return ErrPastExpiration
	}
	return nil
}

// nextSeq allocates the next dense id. The counter row rides in the
// issuing transaction, so a failed issue never burns a sequence number.
func (s *Store) nextSeq(tx *gorm.DB) (uint64, error) {
	var counter models.Counter
	if err := tx.First(&counter, "name = ?", counterName).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		counter = models.Counter{Name: counterName}
		if err := tx.Create(&counter).Error; err != nil {
			return 0, err
		}
	}

	seq := counter.Value
	counter.Value++
	if err := tx.Save(&counter).Error; err != nil {
		return 0, err
	}

	return seq, nil
}

func (s *Store) Suspend(ctx context.Context, caller common.Address, seq uint64, reason string) error {
	return s.transition(ctx, caller, seq, StatusSuspended, reason)
}

func (s *Store) Revoke(ctx context.Context, caller common.Address, seq uint64, reason string) error {
	return s.transition(ctx, caller, seq, StatusRevoked, reason)
}

func (s *Store) Reactivate(ctx context.Context, caller common.Address, seq uint64) error {
	return s.transition(ctx, caller, seq, StatusActive, "")
}

func (s *Store) transition(ctx context.Context, caller common.Address, seq uint64, target string, reason string) error {
	if err := s.guard.RequireActive(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	var evt *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cred models.Credential
		if err := tx.First(&cred, "seq = ?", seq).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := s.authorizeManage(tx, caller, &cred); err != nil {
			return err
		}

		kind := ""
		payload := events.Payload{
			"id":        cred.Seq,
			"timestamp": now.Unix(),
		}

		switch target {
		case StatusSuspended:
			if cred.Status == StatusRevoked {
				return ErrRevoked
			}
			if cred.Status != StatusActive {
				return ErrNotActive
			}
			kind = events.KindCredentialSuspended
			payload["reason"] = reason
		case StatusRevoked:
			if cred.Status == StatusRevoked {
				return ErrRevoked
			}
			kind = events.KindCredentialRevoked
			payload["reason"] = reason
		case StatusActive:
			if cred.Status == StatusRevoked {
				return ErrRevoked
			}
			if cred.Status != StatusSuspended {
				return ErrNotSuspended
			}
			kind = events.KindCredentialReactivated
		}

		cred.Status = target
		if err := tx.Save(&cred).Error; err != nil {
			return err
		}

		var err error
		evt, err = s.events.Record(tx, kind, payload)
		return err
	})
	if err != nil {
		return err
	}

	s.events.Publish(evt)

	return nil
}

// authorizeManage gates lifecycle transitions: the registry owner, or a
// caller whose currently registered issuer DID matches the DID frozen
// on the credential at issuance.
func (s *Store) authorizeManage(tx *gorm.DB, caller common.Address, cred *models.Credential) error {
	if s.guard.IsOwner(caller) {
		return nil
	}

	did, authorized, err := s.directory.IssuerTx(tx, registry.AddrKey(caller))
	if err != nil {
		return err
	}
	if !authorized || did == "" || did != cred.Issuer {
		return ErrNotManager
	}

	return nil
}

// Verify reports whether the credential is currently usable: active and
// not past its expiration. A zero expiration never expires.
func (s *Store) Verify(ctx context.Context, seq uint64) (bool, error) {
	cred, err := s.get(ctx, seq)
	if err != nil {
		return false, err
	}

	if cred.Status != StatusActive {
		return false, nil
	}
	if cred.Expired(s.now().UTC()) {
		return false, nil
	}

	return true, nil
}

func (s *Store) Get(ctx context.Context, seq uint64) (*View, error) {
	cred, err := s.get(ctx, seq)
	if err != nil {
		return nil, err
	}
	return credView(cred), nil
}

func (s *Store) get(ctx context.Context, seq uint64) (*models.Credential, error) {
	var cred models.Credential
	if err := s.db.WithContext(ctx).First(&cred, "seq = ?", seq).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// Claim returns the value stored under key, or the empty string when
// the key was never set.
func (s *Store) Claim(ctx context.Context, seq uint64, key string) (string, error) {
	if _, err := s.get(ctx, seq); err != nil {
		return "", err
	}

	var claim models.Claim
	err := s.db.WithContext(ctx).First(&claim, "credential_seq = ? AND key = ?", seq, key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	return claim.Value, nil
}

// Claims returns every claim in issuance order.
func (s *Store) Claims(ctx context.Context, seq uint64) ([]ClaimPair, error) {
	if _, err := s.get(ctx, seq); err != nil {
		return nil, err
	}

	var rows []models.Claim
	err := s.db.WithContext(ctx).
		Where("credential_seq = ?", seq).
		Order("position asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	pairs := make([]ClaimPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, ClaimPair{Key: row.Key, Value: row.Value})
	}

	return pairs, nil
}

// BySubject lists credential ids for a subject in issuance order. A
// zero limit returns everything; a non-negative cursor resumes after
// the given id.
func (s *Store) BySubject(ctx context.Context, subject string, cursor int64, limit int) ([]uint64, error) {
	q := s.db.WithContext(ctx).
		Model(&models.Credential{}).
		Where("subject = ?", subject).
		Order("seq asc")

	if cursor >= 0 {
		q = q.Where("seq > ?", cursor)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var seqs []uint64
	if err := q.Pluck("seq", &seqs).Error; err != nil {
		return nil, err
	}

	return seqs, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Credential{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func credView(cred *models.Credential) *View {
	return &View{
		Id:                  cred.StringID,
		Seq:                 cred.Seq,
		Types:               cred.Types,
		Issuer:              cred.Issuer,
		Subject:             cred.Subject,
		IssuedAt:            cred.IssuedAt.Unix(),
		Expiration:          cred.ExpiresAt,
		Status:              cred.Status,
		SchemaRef:           cred.SchemaRef,
		Proof:               cred.Proof,
		ZKProof:             cred.ZKProof,
		SelectiveDisclosure: cred.SelectiveDisclosure,
	}
}
