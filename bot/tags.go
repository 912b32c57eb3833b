package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/theseus-bot/theseus/cache"
	"github.com/theseus-bot/theseus/store"
	"go.uber.org/zap"
)

var userRefPattern = regexp.MustCompile(`<@!?(\d+)>|\b(\d{15,20})\b`)

// parseUserRefs extracts user ids from mentions and bare ids, in order and
// without duplicates.
func parseUserRefs(s string) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, m := range userRefPattern.FindAllStringSubmatch(s, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func groupOption(inv *Invocation) string {
	return store.NormalizeName(inv.Option("group"))
}

func (b *Bot) embed(author, icon, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       b.cfg.Bot.EmbedColor,
		Description: description,
		Author:      &discordgo.MessageEmbedAuthor{Name: author, IconURL: icon},
	}
}

func (b *Bot) tagJoin(ctx context.Context, inv *Invocation, r Responder) error {
	name := groupOption(inv)
	if name == "" {
		return r.Respond(ctx, ephemeral(msgNoGroup))
	}

	created, err := b.store.JoinTag(ctx, inv.GuildID, name, inv.Author.ID)
	switch {
	case errors.Is(err, store.ErrAlreadyMember):
		return r.Respond(ctx, ephemeral(fmt.Sprintf("%s You are already in group `%s`!", emojiFail, name)))
	case err != nil:
		return b.fail(ctx, r, err)
	}
	if created {
		return r.Respond(ctx, ephemeral(fmt.Sprintf("%s Created and joined group `%s`!", emojiOK, name)))
	}
	return r.Respond(ctx, ephemeral(fmt.Sprintf("%s Joined group `%s`!", emojiOK, name)))
}

func (b *Bot) tagLeave(ctx context.Context, inv *Invocation, r Responder) error {
	name := groupOption(inv)
	if name == "" {
		return r.Respond(ctx, ephemeral(msgNoGroup))
	}

	deleted, err := b.store.LeaveTag(ctx, inv.GuildID, name, inv.Author.ID)
	switch {
	case errors.Is(err, store.ErrTagNotFound):
		return r.Respond(ctx, ephemeral(tagNotFound(name)))
	case errors.Is(err, store.ErrNotMember):
		return r.Respond(ctx, ephemeral(fmt.Sprintf("%s You are not in group `%s`!", emojiFail, name)))
	case err != nil:
		return b.fail(ctx, r, err)
	}
	msg := fmt.Sprintf("%s Left group `%s`!", emojiOK, name)
	if deleted {
		msg += " This group now has no members, so it has been deleted."
	}
	return r.Respond(ctx, ephemeral(msg))
}

func tagNotFound(name string) string {
	return fmt.Sprintf("%s Group `%s` does not exist!", emojiFail, name)
}

func (b *Bot) tagAll(ctx context.Context, inv *Invocation, r Responder) error {
	tags, err := b.store.ListTags(ctx, inv.GuildID)
	if err != nil {
		return b.fail(ctx, r, err)
	}
	if len(tags) == 0 {
		return r.Respond(ctx, ephemeral(emojiPartial+" There are no groups in this guild!"))
	}

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "* **`%s`** - %d member(s)\n", name, tags[name])
	}
	sb.WriteString("\n> Use `/tag join` to join a group!")

	return r.Respond(ctx, ephemeralEmbed(b.embed(inv.GuildName+"'s tags", inv.GuildIcon, sb.String())))
}

func pingCooldownKey(guildID int64, name string) string {
	return fmt.Sprintf("theseus:ping:%d:%s", guildID, name)
}

// claimPing reserves the ping slot for the tag. When it is taken it returns
// the time left. Cache failures let the ping through.
func (b *Bot) claimPing(ctx context.Context, inv *Invocation, name string) (ok bool, wait time.Duration) {
	cooldown := b.cfg.Bot.PingCooldown
	if cooldown <= 0 || b.cache == nil {
		return true, 0
	}
	key := pingCooldownKey(inv.GuildID, name)
	set, err := b.cache.SetNX(ctx, key, inv.TraceID, cooldown)
	if err != nil {
		b.logger.Warn("ping cooldown unavailable", zap.String("trace_id", inv.TraceID), zap.Error(err))
		return true, 0
	}
	if set {
		return true, 0
	}
	ttl, err := b.cache.TTL(ctx, key)
	if err != nil {
		if cache.IsNotFound(err) {
			// Expired between the two calls.
			return true, 0
		}
		b.logger.Warn("ping cooldown ttl failed", zap.String("trace_id", inv.TraceID), zap.Error(err))
		ttl = cooldown
	}
	return false, ttl
}

func (b *Bot) tagPing(ctx context.Context, inv *Invocation, r Responder) error {
	name := groupOption(inv)
	if name == "" {
		return r.Respond(ctx, ephemeral(msgNoGroup))
	}

	members, err := b.store.MembersOfTag(ctx, inv.GuildID, name)
	switch {
	case errors.Is(err, store.ErrTagNotFound):
		return r.Respond(ctx, ephemeral(tagNotFound(name)))
	case err != nil:
		return b.fail(ctx, r, err)
	}

	if ok, wait := b.claimPing(ctx, inv, name); !ok {
		secs := int(math.Ceil(wait.Seconds()))
		return r.Respond(ctx, ephemeral(fmt.Sprintf(
			"%s Group `%s` was pinged recently! Try again in %d second(s).", emojiFail, name, secs)))
	}

	mentions := make([]string, len(members))
	for i, id := range members {
		mentions[i] = mention(id)
	}
	return r.Respond(ctx, public(fmt.Sprintf("`%s`: %s", name, strings.Join(mentions, " ")), members))
}

// mayAddOthers reports whether the author may use /tag add.
func (b *Bot) mayAddOthers(ctx context.Context, inv *Invocation) (bool, error) {
	if !b.cfg.Bot.RestrictTagAdd || b.isDeveloper(inv.Author.ID) {
		return true, nil
	}
	return b.store.IsAdmin(ctx, inv.GuildID, inv.Author.ID)
}

func (b *Bot) tagAdd(ctx context.Context, inv *Invocation, r Responder) error {
	name := groupOption(inv)
	if name == "" {
		return r.Respond(ctx, ephemeral(msgNoGroup))
	}
	users := parseUserRefs(inv.Option("users"))
	if len(users) == 0 {
		return r.Respond(ctx, ephemeral(msgNoUsers))
	}

	allowed, err := b.mayAddOthers(ctx, inv)
	if err != nil {
		return b.fail(ctx, r, err)
	}
	if !allowed {
		return r.Respond(ctx, ephemeral(msgAdminsOnly))
	}

	var present []string
	for _, id := range users {
		_, err := b.store.JoinTag(ctx, inv.GuildID, name, id)
		switch {
		case errors.Is(err, store.ErrAlreadyMember):
			present = append(present, mention(id))
		case err != nil:
			return b.fail(ctx, r, err)
		}
	}

	msg := fmt.Sprintf("Added %d user(s) to group `%s`!", len(users)-len(present), name)
	if len(present) > 0 {
		verb := "are"
		if len(present) == 1 {
			verb = "is"
		}
		msg += fmt.Sprintf(" %s %s already in the group.", strings.Join(present, " "), verb)
	}
	return r.Respond(ctx, ephemeral(msg))
}

func (b *Bot) tagMembers(ctx context.Context, inv *Invocation, r Responder) error {
	name := groupOption(inv)
	if name == "" {
		return r.Respond(ctx, ephemeral(msgNoGroup))
	}

	members, err := b.store.MembersOfTag(ctx, inv.GuildID, name)
	switch {
	case errors.Is(err, store.ErrTagNotFound):
		return r.Respond(ctx, ephemeral(tagNotFound(name)))
	case err != nil:
		return b.fail(ctx, r, err)
	}

	lines := make([]string, len(members))
	for i, id := range members {
		lines[i] = "* " + mention(id)
	}
	return r.Respond(ctx, ephemeralEmbed(b.embed(fmt.Sprintf("Users in '%s'", name), inv.GuildIcon, strings.Join(lines, "\n"))))
}

func (b *Bot) tagList(ctx context.Context, inv *Invocation, r Responder) error {
	user, ok := inv.UserOption("user")
	if !ok {
		user = inv.Author
	}

	names, err := b.store.TagsForUser(ctx, inv.GuildID, user.ID)
	if err != nil {
		return b.fail(ctx, r, err)
	}
	if len(names) == 0 {
		return r.Respond(ctx, ephemeral(fmt.Sprintf("%s %s is not in any groups!", emojiPartial, user.Mention())))
	}

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("* **`%s`**", name)
	}
	return r.Respond(ctx, ephemeralEmbed(b.embed(user.Name+"'s tags", user.AvatarURL, strings.Join(lines, "\n"))))
}
