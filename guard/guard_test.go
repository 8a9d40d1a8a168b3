package guard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/signet-id/signet/events"
	"github.com/signet-id/signet/models"
	"github.com/signet-id/signet/registry"
)

var (
	owner    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	stranger = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func newTestDb(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Setting{}, &models.Event{}))

	return db
}

func newTestGuard(t *testing.T, db *gorm.DB) *Guard {
	t.Helper()

	g, err := New(&Args{
		Db:     db,
		Events: events.NewManager(nil),
		Owner:  owner,
	})
	require.NoError(t, err)

	return g
}

func TestNewValidation(t *testing.T) {
	db := newTestDb(t)

	_, err := New(&Args{Events: events.NewManager(nil), Owner: owner})
	assert.Error(t, err)

	_, err = New(&Args{Db: db, Owner: owner})
	assert.Error(t, err)

	_, err = New(&Args{Db: db, Events: events.NewManager(nil)})
	assert.Error(t, err)
}

func TestPauseUnpause(t *testing.T) {
	ctx := context.Background()
	db := newTestDb(t)
	g := newTestGuard(t, db)

	assert.False(t, g.Paused())
	assert.NoError(t, g.RequireActive())

	err := g.Pause(ctx, stranger)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, err, registry.ErrUnauthorized)
	assert.False(t, g.Paused())

	require.NoError(t, g.Pause(ctx, owner))
	assert.True(t, g.Paused())
	assert.ErrorIs(t, g.RequireActive(), registry.ErrUnavailable)

	err = g.Pause(ctx, owner)
	assert.ErrorIs(t, err, ErrAlreadyPaused)
	assert.ErrorIs(t, err, registry.ErrState)

	require.NoError(t, g.Unpause(ctx, owner))
	assert.False(t, g.Paused())
	assert.NoError(t, g.RequireActive())

	err = g.Unpause(ctx, owner)
	assert.ErrorIs(t, err, ErrNotPaused)
}

func TestPauseSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	db := newTestDb(t)

	g := newTestGuard(t, db)
	require.NoError(t, g.Pause(ctx, owner))

	reloaded := newTestGuard(t, db)
	assert.True(t, reloaded.Paused())
	assert.ErrorIs(t, reloaded.RequireActive(), ErrPaused)

	require.NoError(t, reloaded.Unpause(ctx, owner))

	again := newTestGuard(t, db)
	assert.False(t, again.Paused())
}

func TestPauseRecordsAndPublishes(t *testing.T) {
	ctx := context.Background()
	db := newTestDb(t)
	evtman := events.NewManager(nil)

	g, err := New(&Args{Db: db, Events: evtman, Owner: owner})
	require.NoError(t, err)

	_, ch := evtman.Subscribe()

	require.NoError(t, g.Pause(ctx, owner))

	evt := <-ch
	assert.Equal(t, events.KindRegistryPaused, evt.Kind)

	var count int64
	require.NoError(t, db.Model(&models.Event{}).Where("kind = ?", events.KindRegistryPaused).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	require.NoError(t, g.Unpause(ctx, owner))

	evt = <-ch
	assert.Equal(t, events.KindRegistryUnpaused, evt.Kind)
}

func TestOwnerChecks(t *testing.T) {
	db := newTestDb(t)
	g := newTestGuard(t, db)

	assert.Equal(t, owner, g.Owner())
	assert.True(t, g.IsOwner(owner))
	assert.False(t, g.IsOwner(stranger))
	assert.NoError(t, g.RequireOwner(owner))
	assert.ErrorIs(t, g.RequireOwner(stranger), ErrNotOwner)
}
