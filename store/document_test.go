package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "admins", NormalizeName("Admins"))
	assert.Equal(t, "admins", NormalizeName("  ADMINS "))
	assert.Equal(t, NormalizeName("Raiders"), NormalizeName("raiders"))
}

func TestDocument_NilGuild(t *testing.T) {
	assert.Empty(t, ListTags(nil))
	assert.NotNil(t, ListTags(nil))
	assert.Empty(t, TagsForUser(nil, 1))
	_, err := MembersOfTag(nil, "x")
	assert.ErrorIs(t, err, ErrTagNotFound)
	_, err = LeaveTag(nil, "x", 1)
	assert.ErrorIs(t, err, ErrTagNotFound)
	assert.False(t, IsAdmin(nil, 1))
	assert.ErrorIs(t, RemoveAdmin(nil, 1), ErrNotAdmin)
}

func TestDocument_JoinCreatesTag(t *testing.T) {
	g := NewGuild(1)
	require.NoError(t, JoinTag(g, "raiders", 10))
	require.Len(t, g.Tags, 1)
	assert.Equal(t, "raiders", g.Tags[0].Name)
	assert.Equal(t, []int64{10}, g.Tags[0].Members)
}

func TestDocument_JoinExistingAppends(t *testing.T) {
	g := NewGuild(1)
	require.NoError(t, JoinTag(g, "raiders", 10))
	require.NoError(t, JoinTag(g, "raiders", 11))
	assert.Equal(t, []int64{10, 11}, g.Tags[0].Members)
	assert.Equal(t, map[string]int{"raiders": 2}, ListTags(g))
}

func TestDocument_JoinTwiceFails(t *testing.T) {
	g := NewGuild(1)
	require.NoError(t, JoinTag(g, "raiders", 10))
	assert.ErrorIs(t, JoinTag(g, "raiders", 10), ErrAlreadyMember)
	assert.Equal(t, []int64{10}, g.Tags[0].Members)
}

func TestDocument_LeaveKeepsNonEmpty(t *testing.T) {
	g := NewGuild(1)
	require.NoError(t, JoinTag(g, "raiders", 10))
	require.NoError(t, JoinTag(g, "raiders", 11))

	deleted, err := LeaveTag(g, "raiders", 10)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, []int64{11}, g.Tags[0].Members)
}

func TestDocument_LeaveLastDeletes(t *testing.T) {
	g := NewGuild(1)
	require.NoError(t, JoinTag(g, "a", 10))
	require.NoError(t, JoinTag(g, "b", 10))

	deleted, err := LeaveTag(g, "a", 10)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"b"}, TagsForUser(g, 10))
	_, err = MembersOfTag(g, "a")
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestDocument_LeaveErrors(t *testing.T) {
	g := NewGuild(1)
	require.NoError(t, JoinTag(g, "a", 10))

	_, err := LeaveTag(g, "missing", 10)
	assert.ErrorIs(t, err, ErrTagNotFound)
	_, err = LeaveTag(g, "a", 99)
	assert.ErrorIs(t, err, ErrNotMember)
	assert.Equal(t, []int64{10}, g.Tags[0].Members)
}

func TestDocument_TagsForUserOrder(t *testing.T) {
	g := NewGuild(1)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, JoinTag(g, name, 5))
	}
	require.NoError(t, JoinTag(g, "other", 6))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, TagsForUser(g, 5))
}

func TestDocument_MembersIsCopy(t *testing.T) {
	g := NewGuild(1)
	require.NoError(t, JoinTag(g, "a", 1))
	members, err := MembersOfTag(g, "a")
	require.NoError(t, err)
	members[0] = 42
	assert.Equal(t, []int64{1}, g.Tags[0].Members)
}

func TestDocument_Admins(t *testing.T) {
	g := NewGuild(1)
	require.NoError(t, AddAdmin(g, 7))
	assert.ErrorIs(t, AddAdmin(g, 7), ErrAlreadyAdmin)
	assert.True(t, IsAdmin(g, 7))
	require.NoError(t, RemoveAdmin(g, 7))
	assert.ErrorIs(t, RemoveAdmin(g, 7), ErrNotAdmin)
	assert.False(t, IsAdmin(g, 7))
}
