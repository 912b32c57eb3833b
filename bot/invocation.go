package bot

import (
	"context"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// User is a Discord user as seen by command handlers.
type User struct {
	ID        int64
	Name      string
	AvatarURL string
}

func (u User) Mention() string { return mention(u.ID) }

func mention(id int64) string { return "<@" + strconv.FormatInt(id, 10) + ">" }

// Invocation is one slash-command call, decoded from the gateway event.
type Invocation struct {
	TraceID string

	// GuildID is zero for direct messages.
	GuildID   int64
	GuildName string
	GuildIcon string

	Author User

	// Command is the full command path, e.g. "tag join".
	Command string
	// Options holds option values as strings; user options hold the user id.
	Options map[string]string
	// Users holds users resolved by Discord for user options.
	Users map[int64]User
}

// Option returns the named option value or "".
func (inv *Invocation) Option(name string) string {
	if inv.Options == nil {
		return ""
	}
	return inv.Options[name]
}

// UserOption returns the user picked for a user option. ok is false when the
// option is absent or malformed.
func (inv *Invocation) UserOption(name string) (u User, ok bool) {
	raw := inv.Option(name)
	if raw == "" {
		return User{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return User{}, false
	}
	if u, ok := inv.Users[id]; ok {
		return u, true
	}
	return User{ID: id, Name: raw}, true
}

// Responder sends the reply to an interaction.
type Responder interface {
	Respond(ctx context.Context, data *discordgo.InteractionResponseData) error
}

func ephemeral(content string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:         content,
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
}

func ephemeralEmbed(embed *discordgo.MessageEmbed) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Embeds:          []*discordgo.MessageEmbed{embed},
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
}

// public replies notify exactly the listed users.
func public(content string, notify []int64) *discordgo.InteractionResponseData {
	ids := make([]string, len(notify))
	for i, id := range notify {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return &discordgo.InteractionResponseData{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: ids},
	}
}
