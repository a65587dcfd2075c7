package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/models"
)

// ==========================
// Store
// ==========================

func TestStore_Load(t *testing.T) {
	db, sm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sm.ExpectQuery(`SELECT id, name, balance FROM counterparties ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance"}).
			AddRow("v-2", "Ali Saad", "0").
			AddRow("v-1", "Benny", "-120.50"))
	sm.ExpectQuery(`SELECT id, name, balance FROM banks ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance"}).
			AddRow("b-1", "HSBC", "2500"))

	dirs, err := NewStore(db).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, dirs.Vendors, 2)
	assert.Equal(t, "Ali Saad", dirs.Vendors[0].Name)
	assert.True(t, dirs.Vendors[1].Balance.Equal(decimal.RequireFromString("-120.50")))
	require.Len(t, dirs.Banks, 1)
	assert.Equal(t, "b-1", dirs.Banks[0].ID)
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestStore_QueryError(t *testing.T) {
	db, sm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sm.ExpectQuery(`SELECT id, name, balance FROM counterparties`).WillReturnError(errors.New("connection reset"))

	_, err = NewStore(db).Load(context.Background())
	assert.ErrorIs(t, err, ErrDirectoryLoadFailed)
}

func TestStore_EmptyTables(t *testing.T) {
	db, sm, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sm.ExpectQuery(`FROM banks`).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance"}))

	banks, err := NewStore(db).ListBanks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, banks)
	assert.Empty(t, banks)
}

// ==========================
// Cache
// ==========================

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context) (models.Directories, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Directories), args.Error(1)
}

func sampleDirs() models.Directories {
	return models.Directories{
		Vendors: []models.DirectoryEntry{{ID: "v-1", Name: "Benny", Balance: decimal.NewFromInt(10)}},
		Banks:   []models.DirectoryEntry{{ID: "b-1", Name: "HSBC", Balance: decimal.Zero}},
	}
}

func TestCache_SnapshotLoadsOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	loader := new(MockLoader)
	loader.On("Load", mock.Anything).Return(sampleDirs(), nil).Once()

	cache := NewCache(rdb, loader, time.Minute, logger.NewTestLogger(t))

	first, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	second, err := cache.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Benny", second.Vendors[0].Name)
	assert.True(t, first.Vendors[0].Balance.Equal(second.Vendors[0].Balance))
	assert.True(t, mr.Exists(snapshotKey))
	assert.Equal(t, time.Minute, mr.TTL(snapshotKey))
	loader.AssertExpectations(t)
}

func TestCache_Invalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	loader := new(MockLoader)
	loader.On("Load", mock.Anything).Return(sampleDirs(), nil).Twice()

	cache := NewCache(rdb, loader, time.Minute, logger.NewTestLogger(t))

	_, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(context.Background()))
	assert.False(t, mr.Exists(snapshotKey))

	_, err = cache.Snapshot(context.Background())
	require.NoError(t, err)
	loader.AssertExpectations(t)
}

func TestCache_RedisDownFallsBackToLoader(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	loader := new(MockLoader)
	loader.On("Load", mock.Anything).Return(sampleDirs(), nil)

	dirs, err := NewCache(rdb, loader, time.Minute, logger.NewNoOpLogger()).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, dirs.Banks, 1)
}

func TestCache_LoaderError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	loader := new(MockLoader)
	loader.On("Load", mock.Anything).Return(models.Directories{}, ErrDirectoryLoadFailed)

	_, err := NewCache(rdb, loader, time.Minute, logger.NewNoOpLogger()).Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrDirectoryLoadFailed)
	assert.False(t, mr.Exists(snapshotKey))
}

func TestCache_CorruptSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	require.NoError(t, mr.Set(snapshotKey, "{not json"))

	loader := new(MockLoader)
	loader.On("Load", mock.Anything).Return(sampleDirs(), nil).Once()

	dirs, err := NewCache(rdb, loader, time.Minute, logger.NewNoOpLogger()).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HSBC", dirs.Banks[0].Name)
}
