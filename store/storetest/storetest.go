// Package storetest is the behavioral suite every store.Store backend runs.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theseus-bot/theseus/store"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

const (
	g1 int64 = 1001
	g2 int64 = 1002
	u1 int64 = 501
	u2 int64 = 502
	u3 int64 = 503
)

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"EmptyGuild", testEmptyGuild},
		{"JoinCreatesTag", testJoinCreatesTag},
		{"JoinExistingAddsMember", testJoinExistingAddsMember},
		{"JoinTwiceFails", testJoinTwiceFails},
		{"LeaveLastMemberDeletes", testLeaveLastMemberDeletes},
		{"LeaveKeepsOthers", testLeaveKeepsOthers},
		{"LeaveErrors", testLeaveErrors},
		{"CaseInsensitiveNames", testCaseInsensitiveNames},
		{"TagsForUserOrder", testTagsForUserOrder},
		{"GuildIsolation", testGuildIsolation},
		{"RaidersScenario", testRaidersScenario},
		{"Admins", testAdmins},
		{"ConcurrentJoins", testConcurrentJoins},
		{"ConcurrentLeaves", testConcurrentLeaves},
		{"Ping", testPing},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func testEmptyGuild(t *testing.T, s store.Store) {
	ctx := context.Background()

	tags, err := s.ListTags(ctx, g1)
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)

	names, err := s.TagsForUser(ctx, g1, u1)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = s.MembersOfTag(ctx, g1, "raiders")
	assert.ErrorIs(t, err, store.ErrTagNotFound)

	_, err = s.LeaveTag(ctx, g1, "raiders", u1)
	assert.ErrorIs(t, err, store.ErrTagNotFound)
}

func testJoinCreatesTag(t *testing.T, s store.Store) {
	ctx := context.Background()

	created, err := s.JoinTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)
	assert.True(t, created)

	members, err := s.MembersOfTag(ctx, g1, "raiders")
	require.NoError(t, err)
	assert.Equal(t, []int64{u1}, members)

	created, err = s.JoinTag(ctx, g1, "crafters", u1)
	require.NoError(t, err)
	assert.False(t, created, "guild record already exists")
}

func testJoinExistingAddsMember(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.JoinTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)
	_, err = s.JoinTag(ctx, g1, "raiders", u2)
	require.NoError(t, err)

	members, err := s.MembersOfTag(ctx, g1, "raiders")
	require.NoError(t, err)
	assert.Equal(t, []int64{u1, u2}, members)
}

func testJoinTwiceFails(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.JoinTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)

	created, err := s.JoinTag(ctx, g1, "raiders", u1)
	assert.ErrorIs(t, err, store.ErrAlreadyMember)
	assert.False(t, created)

	members, err := s.MembersOfTag(ctx, g1, "raiders")
	require.NoError(t, err)
	assert.Equal(t, []int64{u1}, members)
}

func testLeaveLastMemberDeletes(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.JoinTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)

	deleted, err := s.LeaveTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.MembersOfTag(ctx, g1, "raiders")
	assert.ErrorIs(t, err, store.ErrTagNotFound)
	tags, err := s.ListTags(ctx, g1)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func testLeaveKeepsOthers(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.JoinTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)
	_, err = s.JoinTag(ctx, g1, "raiders", u2)
	require.NoError(t, err)

	deleted, err := s.LeaveTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)
	assert.False(t, deleted)

	members, err := s.MembersOfTag(ctx, g1, "raiders")
	require.NoError(t, err)
	assert.Equal(t, []int64{u2}, members)
}

func testLeaveErrors(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.JoinTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)

	_, err = s.LeaveTag(ctx, g1, "nobody-here", u1)
	assert.ErrorIs(t, err, store.ErrTagNotFound)

	_, err = s.LeaveTag(ctx, g1, "raiders", u2)
	assert.ErrorIs(t, err, store.ErrNotMember)

	members, err := s.MembersOfTag(ctx, g1, "raiders")
	require.NoError(t, err)
	assert.Equal(t, []int64{u1}, members)
}

func testCaseInsensitiveNames(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.JoinTag(ctx, g1, store.NormalizeName("Admins"), u1)
	require.NoError(t, err)
	_, err = s.JoinTag(ctx, g1, store.NormalizeName("admins"), u2)
	require.NoError(t, err)

	tags, err := s.ListTags(ctx, g1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"admins": 2}, tags)

	_, err = s.JoinTag(ctx, g1, store.NormalizeName("ADMINS"), u1)
	assert.ErrorIs(t, err, store.ErrAlreadyMember)
}

func testTagsForUserOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := s.JoinTag(ctx, g1, name, u1)
		require.NoError(t, err)
	}
	_, err := s.JoinTag(ctx, g1, "other", u2)
	require.NoError(t, err)

	names, err := s.TagsForUser(ctx, g1, u1)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func testGuildIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.JoinTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)

	created, err := s.JoinTag(ctx, g2, "raiders", u2)
	require.NoError(t, err)
	assert.True(t, created)

	m1, err := s.MembersOfTag(ctx, g1, "raiders")
	require.NoError(t, err)
	m2, err := s.MembersOfTag(ctx, g2, "raiders")
	require.NoError(t, err)
	assert.Equal(t, []int64{u1}, m1)
	assert.Equal(t, []int64{u2}, m2)

	names, err := s.TagsForUser(ctx, g2, u1)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func testRaidersScenario(t *testing.T, s store.Store) {
	ctx := context.Background()

	created, err := s.JoinTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)
	assert.True(t, created)
	tags, err := s.ListTags(ctx, g1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"raiders": 1}, tags)

	_, err = s.JoinTag(ctx, g1, "raiders", u2)
	require.NoError(t, err)
	tags, err = s.ListTags(ctx, g1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"raiders": 2}, tags)

	deleted, err := s.LeaveTag(ctx, g1, "raiders", u1)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.LeaveTag(ctx, g1, "raiders", u2)
	require.NoError(t, err)
	assert.True(t, deleted)

	tags, err = s.ListTags(ctx, g1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{}, tags)
}

func testAdmins(t *testing.T, s store.Store) {
	ctx := context.Background()

	ok, err := s.IsAdmin(ctx, g1, u1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.RemoveAdmin(ctx, g1, u1), store.ErrNotAdmin)

	created, err := s.AddAdmin(ctx, g1, u1)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = s.AddAdmin(ctx, g1, u1)
	assert.ErrorIs(t, err, store.ErrAlreadyAdmin)

	created, err = s.AddAdmin(ctx, g1, u2)
	require.NoError(t, err)
	assert.False(t, created)

	admins, err := s.Admins(ctx, g1)
	require.NoError(t, err)
	assert.Equal(t, []int64{u1, u2}, admins)

	ok, err = s.IsAdmin(ctx, g1, u1)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.RemoveAdmin(ctx, g1, u1))
	ok, err = s.IsAdmin(ctx, g1, u1)
	require.NoError(t, err)
	assert.False(t, ok)

	// Admin changes never touch tags.
	_, err = s.JoinTag(ctx, g1, "raiders", u3)
	require.NoError(t, err)
	_, err = s.AddAdmin(ctx, g1, u3)
	require.NoError(t, err)
	members, err := s.MembersOfTag(ctx, g1, "raiders")
	require.NoError(t, err)
	assert.Equal(t, []int64{u3}, members)
}

func testConcurrentJoins(t *testing.T, s store.Store) {
	ctx := context.Background()
	const n = 16

	var wg sync.WaitGroup
	errs := make([]error, n)
	created := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created[i], errs[i] = s.JoinTag(ctx, g1, "raiders", int64(1000+i))
		}(i)
	}
	wg.Wait()

	nCreated := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "join %d", i)
		if created[i] {
			nCreated++
		}
	}
	assert.Equal(t, 1, nCreated, "exactly one join creates the guild record")

	tags, err := s.ListTags(ctx, g1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"raiders": n}, tags, "no join may be lost")
}

func testConcurrentLeaves(t *testing.T, s store.Store) {
	ctx := context.Background()
	const n = 8
	for i := 0; i < n; i++ {
		_, err := s.JoinTag(ctx, g1, "raiders", int64(2000+i))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	deleted := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deleted[i], errs[i] = s.LeaveTag(ctx, g1, "raiders", int64(2000+i))
		}(i)
	}
	wg.Wait()

	nDeleted := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "leave %d", i)
		if deleted[i] {
			nDeleted++
		}
	}
	assert.Equal(t, 1, nDeleted, "the tag is deleted exactly once")

	_, err := s.MembersOfTag(ctx, g1, "raiders")
	assert.ErrorIs(t, err, store.ErrTagNotFound)
}

func testPing(t *testing.T, s store.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}
