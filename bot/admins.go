package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/theseus-bot/theseus/store"
)

// Guild admins may use /tag add when tag adds are restricted. Only bot
// developers change the admin list.

func (b *Bot) adminsGrant(ctx context.Context, inv *Invocation, r Responder) error {
	if !b.isDeveloper(inv.Author.ID) {
		return r.Respond(ctx, ephemeral(msgDevelopersOnly))
	}
	user, ok := inv.UserOption("user")
	if !ok {
		return r.Respond(ctx, ephemeral(msgNoUser))
	}

	_, err := b.store.AddAdmin(ctx, inv.GuildID, user.ID)
	switch {
	case errors.Is(err, store.ErrAlreadyAdmin):
		return r.Respond(ctx, ephemeral(fmt.Sprintf("%s %s is already a guild admin!", emojiFail, user.Mention())))
	case err != nil:
		return b.fail(ctx, r, err)
	}
	return r.Respond(ctx, ephemeral(fmt.Sprintf("%s %s is now a guild admin!", emojiOK, user.Mention())))
}

func (b *Bot) adminsRevoke(ctx context.Context, inv *Invocation, r Responder) error {
	if !b.isDeveloper(inv.Author.ID) {
		return r.Respond(ctx, ephemeral(msgDevelopersOnly))
	}
	user, ok := inv.UserOption("user")
	if !ok {
		return r.Respond(ctx, ephemeral(msgNoUser))
	}

	err := b.store.RemoveAdmin(ctx, inv.GuildID, user.ID)
	switch {
	case errors.Is(err, store.ErrNotAdmin):
		return r.Respond(ctx, ephemeral(fmt.Sprintf("%s %s is not a guild admin!", emojiFail, user.Mention())))
	case err != nil:
		return b.fail(ctx, r, err)
	}
	return r.Respond(ctx, ephemeral(fmt.Sprintf("%s %s is no longer a guild admin.", emojiOK, user.Mention())))
}

func (b *Bot) adminsList(ctx context.Context, inv *Invocation, r Responder) error {
	admins, err := b.store.Admins(ctx, inv.GuildID)
	if err != nil {
		return b.fail(ctx, r, err)
	}
	if len(admins) == 0 {
		return r.Respond(ctx, ephemeral(emojiPartial+" This guild has no admins!"))
	}
	lines := make([]string, len(admins))
	for i, id := range admins {
		lines[i] = "* " + mention(id)
	}
	return r.Respond(ctx, ephemeralEmbed(b.embed(inv.GuildName+"'s admins", inv.GuildIcon, strings.Join(lines, "\n"))))
}
