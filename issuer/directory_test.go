package issuer

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
	owner     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	issuerOne = common.HexToAddress("0xaa00000000000000000000000000000000000001")
	stranger  = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Setting{}, &models.Event{}, &models.Issuer{}, &models.CredentialType{}))

	evtman := events.NewManager(nil)
	g, err := guard.New(&guard.Args{Db: db, Events: evtman, Owner: owner})
	require.NoError(t, err)

	d, err := NewDirectory(&Args{
		Db:     db,
		Guard:  g,
		Events: evtman,
		Clock:  func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
	require.NoError(t, err)

	return d
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	require.NoError(t, d.Seed(ctx))
	require.NoError(t, d.Seed(ctx))

	types, err := d.Types(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"EducationalCredential",
		"IdentityCredential",
		"MembershipCredential",
		"ProfessionalCredential",
	}, types)

	var count int64
	require.NoError(t, d.db.Model(&models.Event{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "seeding emits no events")
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	err := d.Authorize(ctx, stranger, issuerOne, "did:example:issuer")
	assert.ErrorIs(t, err, guard.ErrNotOwner)

	err = d.Authorize(ctx, owner, issuerOne, "")
	assert.ErrorIs(t, err, ErrEmptyDID)
	assert.ErrorIs(t, err, registry.ErrValidation)

	require.NoError(t, d.Authorize(ctx, owner, issuerOne, "did:example:issuer"))

	authorized, err := d.IsAuthorized(ctx, issuerOne)
	require.NoError(t, err)
	assert.True(t, authorized)

	iss, err := d.Get(ctx, issuerOne)
	require.NoError(t, err)
	assert.Equal(t, "did:example:issuer", iss.Did)

	require.NoError(t, d.Authorize(ctx, owner, issuerOne, "did:example:renamed"))

	iss, err = d.Get(ctx, issuerOne)
	require.NoError(t, err)
	assert.Equal(t, "did:example:renamed", iss.Did)
	assert.True(t, iss.Authorized)
}

func TestDeauthorize(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	err := d.Deauthorize(ctx, owner, issuerOne)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	require.NoError(t, d.Authorize(ctx, owner, issuerOne, "did:example:issuer"))
	require.NoError(t, d.Deauthorize(ctx, owner, issuerOne))

	authorized, err := d.IsAuthorized(ctx, issuerOne)
	require.NoError(t, err)
	assert.False(t, authorized)

	iss, err := d.Get(ctx, issuerOne)
	require.NoError(t, err)
	assert.Empty(t, iss.Did, "deauthorizing clears the did")

	err = d.Deauthorize(ctx, owner, issuerOne)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetTypeSupport(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)
	require.NoError(t, d.Seed(ctx))

	err := d.SetTypeSupport(ctx, stranger, "CustomCredential", true)
	assert.ErrorIs(t, err, guard.ErrNotOwner)

	err = d.SetTypeSupport(ctx, owner, "", true)
	assert.ErrorIs(t, err, ErrEmptyType)

	require.NoError(t, d.SetTypeSupport(ctx, owner, "CustomCredential", true))

	supported, err := d.IsTypeSupported(ctx, "CustomCredential")
	require.NoError(t, err)
	assert.True(t, supported)

	require.NoError(t, d.SetTypeSupport(ctx, owner, "IdentityCredential", false))

	supported, err = d.IsTypeSupported(ctx, "IdentityCredential")
	require.NoError(t, err)
	assert.False(t, supported)

	types, err := d.Types(ctx)
	require.NoError(t, err)
	assert.NotContains(t, types, "IdentityCredential")
	assert.Contains(t, types, "CustomCredential")
}

func TestIsTypeSupportedUnknown(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	supported, err := d.IsTypeSupported(ctx, "NeverHeardOfIt")
	require.NoError(t, err)
	assert.False(t, supported)
}

func TestPausedDirectoryRejectsWrites(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	require.NoError(t, d.guard.Pause(ctx, owner))

	err := d.Authorize(ctx, owner, issuerOne, "did:example:issuer")
	assert.ErrorIs(t, err, registry.ErrUnavailable)

	err = d.SetTypeSupport(ctx, owner, "CustomCredential", true)
	assert.ErrorIs(t, err, registry.ErrUnavailable)
}

func TestTxLookups(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)
	require.NoError(t, d.Seed(ctx))
	require.NoError(t, d.Authorize(ctx, owner, issuerOne, "did:example:issuer"))

	did, authorized, err := d.IssuerTx(d.db, registry.AddrKey(issuerOne))
	require.NoError(t, err)
	assert.True(t, authorized)
	assert.Equal(t, "did:example:issuer", did)

	did, authorized, err = d.IssuerTx(d.db, registry.AddrKey(stranger))
	require.NoError(t, err)
	assert.False(t, authorized)
	assert.Empty(t, did)

	supported, err := d.TypeSupportedTx(d.db, "IdentityCredential")
	require.NoError(t, err)
	assert.True(t, supported)

	supported, err = d.TypeSupportedTx(d.db, "NeverHeardOfIt")
	require.NoError(t, err)
	assert.False(t, supported)
}
