package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theseus-bot/theseus/model"
	"github.com/theseus-bot/theseus/store"
	"github.com/theseus-bot/theseus/store/sqlstore"
	"github.com/theseus-bot/theseus/store/storetest"
	"github.com/theseus-bot/theseus/testutil"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return testutil.SetupTestStore(t)
	})
}

func TestStore_VersionAdvancesOnWrite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := sqlstore.New(db, testutil.Logger())
	ctx := context.Background()

	_, err := s.JoinTag(ctx, 7, "raiders", 1)
	require.NoError(t, err)
	_, err = s.JoinTag(ctx, 7, "raiders", 2)
	require.NoError(t, err)

	var rec model.GuildRecord
	require.NoError(t, db.First(&rec, "guild_id = ?", 7).Error)
	assert.Equal(t, int64(2), rec.Version)
	assert.JSONEq(t, `[{"name":"raiders","members":[1,2]}]`, string(rec.Tags))
	assert.JSONEq(t, `[]`, string(rec.Admins))
}

func TestStore_FailedWriteLeavesRowUntouched(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := sqlstore.New(db, testutil.Logger())
	ctx := context.Background()

	_, err := s.JoinTag(ctx, 7, "raiders", 1)
	require.NoError(t, err)
	_, err = s.JoinTag(ctx, 7, "raiders", 1)
	require.ErrorIs(t, err, store.ErrAlreadyMember)
	_, err = s.LeaveTag(ctx, 7, "raiders", 2)
	require.ErrorIs(t, err, store.ErrNotMember)

	var rec model.GuildRecord
	require.NoError(t, db.First(&rec, "guild_id = ?", 7).Error)
	assert.Equal(t, int64(1), rec.Version)
}

func TestStore_LeaveMissingGuildCreatesNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := sqlstore.New(db, testutil.Logger())

	_, err := s.LeaveTag(context.Background(), 9, "raiders", 1)
	require.ErrorIs(t, err, store.ErrTagNotFound)

	var count int64
	require.NoError(t, db.Model(&model.GuildRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStore_ClosedDBReturnsError(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Close(ctx))

	_, err := s.ListTags(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, s.Ping(ctx))
}
