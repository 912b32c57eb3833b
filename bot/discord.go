package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/theseus-bot/theseus/middleware"
)

type interactionResponder struct {
	s *discordgo.Session
	i *discordgo.Interaction
}

func (r *interactionResponder) Respond(ctx context.Context, data *discordgo.InteractionResponseData) error {
	return r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
}

func parseSnowflake(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

func newUser(u *discordgo.User) User {
	if u == nil {
		return User{}
	}
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return User{ID: parseSnowflake(u.ID), Name: name, AvatarURL: u.AvatarURL("")}
}

// newInvocation decodes an application command interaction. state may be nil;
// it is only used to look up the guild name and icon.
func newInvocation(state *discordgo.State, i *discordgo.Interaction) *Invocation {
	inv := &Invocation{
		TraceID: middleware.NewTraceID(),
		GuildID: parseSnowflake(i.GuildID),
		Options: make(map[string]string),
		Users:   make(map[int64]User),
	}
	if i.Member != nil {
		inv.Author = newUser(i.Member.User)
	} else {
		inv.Author = newUser(i.User)
	}
	if state != nil && i.GuildID != "" {
		if g, err := state.Guild(i.GuildID); err == nil {
			inv.GuildName = g.Name
			inv.GuildIcon = g.IconURL("")
		}
	}

	data := i.ApplicationCommandData()
	path := []string{data.Name}
	opts := data.Options
	for len(opts) == 1 && (opts[0].Type == discordgo.ApplicationCommandOptionSubCommand ||
		opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup) {
		path = append(path, opts[0].Name)
		opts = opts[0].Options
	}
	inv.Command = strings.Join(path, " ")

	for _, opt := range opts {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			inv.Options[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionUser:
			inv.Options[opt.Name] = opt.UserValue(nil).ID
		default:
			inv.Options[opt.Name] = fmt.Sprint(opt.Value)
		}
	}
	if data.Resolved != nil {
		for id, u := range data.Resolved.Users {
			inv.Users[parseSnowflake(id)] = newUser(u)
		}
	}
	return inv
}
