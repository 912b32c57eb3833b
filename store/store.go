// Package store holds the per-guild tag membership contract and the
// document logic shared by its backends.
package store

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrTagNotFound   = errors.New("store: tag not found")
	ErrNotMember     = errors.New("store: not a member of tag")
	ErrAlreadyMember = errors.New("store: already a member of tag")
	ErrAlreadyAdmin  = errors.New("store: already a guild admin")
	ErrNotAdmin      = errors.New("store: not a guild admin")
	// ErrConflict is returned when an optimistic update keeps losing races.
	ErrConflict = errors.New("store: too many concurrent updates")
)

// Store is the durable mapping (guild, tag) -> members and its inverse.
//
// Tag names are passed through verbatim. Callers normalize them with
// NormalizeName so that "Admins" and "admins" resolve to the same tag.
// Every method is a single atomic step against one guild record; a call that
// fails with one of the sentinel errors leaves the record untouched.
type Store interface {
	// ListTags returns tag name -> member count; empty when the guild has no record.
	ListTags(ctx context.Context, guildID int64) (map[string]int, error)
	// JoinTag adds memberID to the tag, creating the guild record and the tag
	// as needed. created reports whether the guild record was newly created.
	JoinTag(ctx context.Context, guildID int64, name string, memberID int64) (created bool, err error)
	// LeaveTag removes memberID from the tag and deletes the tag once empty.
	LeaveTag(ctx context.Context, guildID int64, name string, memberID int64) (deleted bool, err error)
	// TagsForUser lists the tags containing memberID in storage order.
	TagsForUser(ctx context.Context, guildID int64, memberID int64) ([]string, error)
	// MembersOfTag lists the members of a tag in join order.
	MembersOfTag(ctx context.Context, guildID int64, name string) ([]int64, error)

	IsAdmin(ctx context.Context, guildID int64, userID int64) (bool, error)
	Admins(ctx context.Context, guildID int64) ([]int64, error)
	AddAdmin(ctx context.Context, guildID int64, userID int64) (created bool, err error)
	RemoveAdmin(ctx context.Context, guildID int64, userID int64) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NormalizeName is the caller-side tag name normalization.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
