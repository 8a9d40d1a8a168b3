package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/signet-id/signet/events"
	"github.com/signet-id/signet/guard"
	"github.com/signet-id/signet/models"
	"github.com/signet-id/signet/registry"
)

var (
	owner = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice = common.HexToAddress("0xaa00000000000000000000000000000000000001")
	bob   = common.HexToAddress("0xbb00000000000000000000000000000000000002")
)

const aliceDid = "did:example:alice"

type fixture struct {
	store *Store
	guard *guard.Guard
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Setting{}, &models.Event{}, &models.Document{}))

	evtman := events.NewManager(nil)
	g, err := guard.New(&guard.Args{Db: db, Events: evtman, Owner: owner})
	require.NoError(t, err)

	f := &fixture{guard: g, now: time.Unix(1_700_000_000, 0).UTC()}

	f.store, err = NewStore(&Args{
		Db:     db,
		Guard:  g,
		Events: evtman,
		Clock:  func() time.Time { return f.now },
	})
	require.NoError(t, err)

	return f
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	doc, err := f.store.Create(ctx, alice, aliceDid, []string{"https://www.w3.org/ns/did/v1"}, []string{aliceDid + "#key-1"})
	require.NoError(t, err)

	assert.Equal(t, aliceDid, doc.Id)
	assert.Equal(t, registry.AddrKey(alice), doc.Controller)
	assert.Equal(t, []string{"https://www.w3.org/ns/did/v1"}, doc.Context)
	assert.Equal(t, []string{aliceDid + "#key-1"}, doc.VerificationMethod)
	assert.True(t, doc.Active)
	assert.Equal(t, f.now.Unix(), doc.Created)
	assert.Equal(t, doc.Created, doc.Updated)
}

func TestCreateRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.Create(ctx, alice, "", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyDID)
	assert.ErrorIs(t, err, registry.ErrValidation)

	_, err = f.store.Create(ctx, alice, aliceDid, nil, nil)
	require.NoError(t, err)

	_, err = f.store.Create(ctx, bob, aliceDid, nil, nil)
	assert.ErrorIs(t, err, ErrDIDTaken)

	_, err = f.store.Create(ctx, alice, "did:example:second", nil, nil)
	assert.ErrorIs(t, err, ErrHasDocument)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.Create(ctx, alice, aliceDid, nil, nil)
	require.NoError(t, err)

	doc, err := f.store.ResolveByDID(ctx, aliceDid)
	require.NoError(t, err)
	assert.Equal(t, aliceDid, doc.Id)

	doc, err = f.store.ResolveByAddress(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, aliceDid, doc.Id)

	_, err = f.store.ResolveByDID(ctx, "did:example:ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	_, err = f.store.ResolveByAddress(ctx, bob)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.store.ResolveByDID(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyDID)
}

func TestResolveServesFreshDataAfterMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.Create(ctx, alice, aliceDid, nil, []string{"old-key"})
	require.NoError(t, err)

	doc, err := f.store.ResolveByDID(ctx, aliceDid)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-key"}, doc.VerificationMethod)

	_, err = f.store.Update(ctx, alice, aliceDid, nil, []string{"new-key"})
	require.NoError(t, err)

	doc, err = f.store.ResolveByDID(ctx, aliceDid)
	require.NoError(t, err)
	assert.Equal(t, []string{"new-key"}, doc.VerificationMethod, "cache busted on update")
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.Create(ctx, alice, aliceDid, []string{"ctx-1"}, []string{"key-1"})
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)

	_, err = f.store.Update(ctx, bob, aliceDid, nil, nil)
	assert.ErrorIs(t, err, ErrNotController)
	assert.ErrorIs(t, err, registry.ErrUnauthorized)

	doc, err := f.store.Update(ctx, alice, aliceDid, []string{"ctx-2"}, []string{"key-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ctx-2"}, doc.Context)
	assert.Equal(t, []string{"key-2"}, doc.VerificationMethod, "update replaces, not appends")
	assert.Equal(t, f.now.Unix(), doc.Updated)
	assert.Less(t, doc.Created, doc.Updated)

	_, err = f.store.Update(ctx, owner, aliceDid, []string{"ctx-3"}, nil)
	require.NoError(t, err, "registry owner may update any document")

	_, err = f.store.Update(ctx, alice, "did:example:ghost", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.Create(ctx, alice, aliceDid, nil, []string{"key-1"})
	require.NoError(t, err)

	doc, err := f.store.AddVerificationMethod(ctx, alice, aliceDid, "key-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"key-1", "key-2"}, doc.VerificationMethod)

	doc, err = f.store.AddServiceEndpoint(ctx, alice, aliceDid, "https://pds.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://pds.example.com"}, doc.Service)

	_, err = f.store.AddVerificationMethod(ctx, alice, aliceDid, "")
	assert.ErrorIs(t, err, ErrEmptyEntry)

	_, err = f.store.AddServiceEndpoint(ctx, bob, aliceDid, "https://intruder.example.com")
	assert.ErrorIs(t, err, ErrNotController)

	doc, err = f.store.Update(ctx, alice, aliceDid, nil, []string{"key-3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://pds.example.com"}, doc.Service, "service endpoints survive updates")
	assert.Equal(t, []string{"key-3"}, doc.VerificationMethod)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.Create(ctx, alice, aliceDid, nil, nil)
	require.NoError(t, err)

	err = f.store.Deactivate(ctx, bob, aliceDid)
	assert.ErrorIs(t, err, ErrNotController)

	require.NoError(t, f.store.Deactivate(ctx, alice, aliceDid))

	doc, err := f.store.ResolveByDID(ctx, aliceDid)
	require.NoError(t, err, "deactivated documents stay resolvable")
	assert.False(t, doc.Active)

	err = f.store.Deactivate(ctx, alice, aliceDid)
	assert.ErrorIs(t, err, ErrDeactivated)
	assert.ErrorIs(t, err, registry.ErrState)

	_, err = f.store.Update(ctx, alice, aliceDid, nil, nil)
	assert.ErrorIs(t, err, ErrDeactivated)

	_, err = f.store.AddVerificationMethod(ctx, alice, aliceDid, "key-2")
	assert.ErrorIs(t, err, ErrDeactivated)

	active, err := f.store.HasActive(ctx, alice)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestHasActiveAndCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	active, err := f.store.HasActive(ctx, alice)
	require.NoError(t, err)
	assert.False(t, active)

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	_, err = f.store.Create(ctx, alice, aliceDid, nil, nil)
	require.NoError(t, err)
	_, err = f.store.Create(ctx, bob, "did:example:bob", nil, nil)
	require.NoError(t, err)

	active, err = f.store.HasActive(ctx, alice)
	require.NoError(t, err)
	assert.True(t, active)

	count, err = f.store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, f.store.Deactivate(ctx, bob, "did:example:bob"))

	count, err = f.store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "deactivated documents still count")
}

func TestPausedStoreRejectsWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.Create(ctx, alice, aliceDid, nil, nil)
	require.NoError(t, err)

	require.NoError(t, f.guard.Pause(ctx, owner))

	_, err = f.store.Create(ctx, bob, "did:example:bob", nil, nil)
	assert.ErrorIs(t, err, registry.ErrUnavailable)

	_, err = f.store.Update(ctx, alice, aliceDid, nil, nil)
	assert.ErrorIs(t, err, registry.ErrUnavailable)

	err = f.store.Deactivate(ctx, alice, aliceDid)
	assert.ErrorIs(t, err, registry.ErrUnavailable)

	_, err = f.store.ResolveByDID(ctx, aliceDid)
	assert.NoError(t, err, "reads bypass the pause guard")
}

func TestMutationEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, ch := f.store.events.Subscribe()

	_, err := f.store.Create(ctx, alice, aliceDid, nil, nil)
	require.NoError(t, err)

	evt := <-ch
	assert.Equal(t, events.KindIdentityCreated, evt.Kind)

	_, err = f.store.Update(ctx, alice, aliceDid, nil, nil)
	require.NoError(t, err)

	evt = <-ch
	assert.Equal(t, events.KindIdentityUpdated, evt.Kind)

	require.NoError(t, f.store.Deactivate(ctx, alice, aliceDid))

	evt = <-ch
	assert.Equal(t, events.KindIdentityDeactivated, evt.Kind)
}

func TestFailedMutationEmitsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.Create(ctx, alice, aliceDid, nil, nil)
	require.NoError(t, err)

	_, ch := f.store.events.Subscribe()

	_, err = f.store.Create(ctx, bob, aliceDid, nil, nil)
	require.ErrorIs(t, err, ErrDIDTaken)

	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %q after failed create", evt.Kind)
	default:
	}
}
