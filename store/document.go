package store

import (
	"slices"

	"github.com/theseus-bot/theseus/model"
)

// NewGuild returns an empty guild document.
func NewGuild(guildID int64) *model.Guild {
	return &model.Guild{GuildID: guildID, Admins: []int64{}, Tags: []model.Tag{}}
}

func findTag(g *model.Guild, name string) int {
	if g == nil {
		return -1
	}
	for i := range g.Tags {
		if g.Tags[i].Name == name {
			return i
		}
	}
	return -1
}

// ListTags returns tag name -> member count for g. A nil g yields an empty map.
func ListTags(g *model.Guild) map[string]int {
	out := make(map[string]int)
	if g == nil {
		return out
	}
	for _, t := range g.Tags {
		out[t.Name] = len(t.Members)
	}
	return out
}

// JoinTag appends memberID to the named tag, creating the tag if needed.
func JoinTag(g *model.Guild, name string, memberID int64) error {
	i := findTag(g, name)
	if i < 0 {
		g.Tags = append(g.Tags, model.Tag{Name: name, Members: []int64{memberID}})
		return nil
	}
	if slices.Contains(g.Tags[i].Members, memberID) {
		return ErrAlreadyMember
	}
	g.Tags[i].Members = append(g.Tags[i].Members, memberID)
	return nil
}

// LeaveTag removes memberID from the named tag and drops the tag once it is
// empty. deleted reports whether the tag was dropped.
func LeaveTag(g *model.Guild, name string, memberID int64) (deleted bool, err error) {
	i := findTag(g, name)
	if i < 0 {
		return false, ErrTagNotFound
	}
	members := g.Tags[i].Members
	j := slices.Index(members, memberID)
	if j < 0 {
		return false, ErrNotMember
	}
	g.Tags[i].Members = slices.Delete(members, j, j+1)
	if len(g.Tags[i].Members) == 0 {
		g.Tags = slices.Delete(g.Tags, i, i+1)
		return true, nil
	}
	return false, nil
}

// TagsForUser returns the names of the tags containing memberID.
func TagsForUser(g *model.Guild, memberID int64) []string {
	out := []string{}
	if g == nil {
		return out
	}
	for _, t := range g.Tags {
		if slices.Contains(t.Members, memberID) {
			out = append(out, t.Name)
		}
	}
	return out
}

// MembersOfTag returns a copy of the named tag's members.
func MembersOfTag(g *model.Guild, name string) ([]int64, error) {
	i := findTag(g, name)
	if i < 0 {
		return nil, ErrTagNotFound
	}
	return slices.Clone(g.Tags[i].Members), nil
}

func IsAdmin(g *model.Guild, userID int64) bool {
	return g != nil && slices.Contains(g.Admins, userID)
}

func AddAdmin(g *model.Guild, userID int64) error {
	if slices.Contains(g.Admins, userID) {
		return ErrAlreadyAdmin
	}
	g.Admins = append(g.Admins, userID)
	return nil
}

func RemoveAdmin(g *model.Guild, userID int64) error {
	if g == nil {
		return ErrNotAdmin
	}
	j := slices.Index(g.Admins, userID)
	if j < 0 {
		return ErrNotAdmin
	}
	g.Admins = slices.Delete(g.Admins, j, j+1)
	return nil
}
