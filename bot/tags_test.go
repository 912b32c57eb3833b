package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theseus-bot/theseus/config"
	"github.com/theseus-bot/theseus/hook"
)

func TestTagJoin(t *testing.T) {
	tb := newTestBot(t, nil)

	reply := tb.run(t, alice, "tag join", map[string]string{"group": "Raiders"})
	assert.True(t, isEphemeral(reply))
	assert.Equal(t, emojiOK+" Created and joined group `raiders`!", reply.Content)

	reply = tb.run(t, bob, "tag join", map[string]string{"group": "raiders"})
	assert.Equal(t, emojiOK+" Joined group `raiders`!", reply.Content)

	reply = tb.run(t, bob, "tag join", map[string]string{"group": "RAIDERS"})
	assert.Equal(t, emojiFail+" You are already in group `raiders`!", reply.Content)

	members, err := tb.store.MembersOfTag(context.Background(), testGuild, "raiders")
	require.NoError(t, err)
	assert.Equal(t, []int64{alice, bob}, members)
}

func TestTagJoin_MissingGroup(t *testing.T) {
	tb := newTestBot(t, nil)
	reply := tb.run(t, alice, "tag join", map[string]string{"group": "   "})
	assert.Equal(t, msgNoGroup, reply.Content)
}

func TestTagLeave(t *testing.T) {
	tb := newTestBot(t, nil)
	tb.run(t, alice, "tag join", map[string]string{"group": "raiders"})
	tb.run(t, bob, "tag join", map[string]string{"group": "raiders"})

	reply := tb.run(t, carol, "tag leave", map[string]string{"group": "raiders"})
	assert.Equal(t, emojiFail+" You are not in group `raiders`!", reply.Content)

	reply = tb.run(t, alice, "tag leave", map[string]string{"group": "raiders"})
	assert.Equal(t, emojiOK+" Left group `raiders`!", reply.Content)

	reply = tb.run(t, bob, "tag leave", map[string]string{"group": "Raiders"})
	assert.Equal(t, emojiOK+" Left group `raiders`! This group now has no members, so it has been deleted.", reply.Content)

	reply = tb.run(t, bob, "tag leave", map[string]string{"group": "raiders"})
	assert.Equal(t, emojiFail+" Group `raiders` does not exist!", reply.Content)
	assert.True(t, isEphemeral(reply))
}

func TestTagAll(t *testing.T) {
	tb := newTestBot(t, nil)

	reply := tb.run(t, alice, "tag all", nil)
	assert.Equal(t, emojiPartial+" There are no groups in this guild!", reply.Content)

	tb.run(t, alice, "tag join", map[string]string{"group": "zeta"})
	tb.run(t, alice, "tag join", map[string]string{"group": "alpha"})
	tb.run(t, bob, "tag join", map[string]string{"group": "alpha"})

	reply = tb.run(t, alice, "tag all", nil)
	assert.True(t, isEphemeral(reply))
	require.Len(t, reply.Embeds, 1)
	embed := reply.Embeds[0]
	assert.Equal(t, "Ithaca's tags", embed.Author.Name)
	assert.Equal(t, "https://cdn.example/icon.png", embed.Author.IconURL)
	assert.Equal(t, 0x2b2d31, embed.Color)
	assert.Equal(t,
		"* **`alpha`** - 2 member(s)\n* **`zeta`** - 1 member(s)\n\n> Use `/tag join` to join a group!",
		embed.Description)
}

func TestTagPing(t *testing.T) {
	tb := newTestBot(t, nil)
	tb.run(t, alice, "tag join", map[string]string{"group": "raiders"})
	tb.run(t, bob, "tag join", map[string]string{"group": "raiders"})

	reply := tb.run(t, carol, "tag ping", map[string]string{"group": "Raiders"})
	assert.False(t, isEphemeral(reply), "pings are public")
	assert.Equal(t, "`raiders`: <@111111111111111111> <@222222222222222222>", reply.Content)
	require.NotNil(t, reply.AllowedMentions)
	assert.Equal(t, []string{"111111111111111111", "222222222222222222"}, reply.AllowedMentions.Users)

	reply = tb.run(t, carol, "tag ping", map[string]string{"group": "raiders"})
	assert.True(t, isEphemeral(reply))
	assert.Contains(t, reply.Content, "was pinged recently")
	assert.Contains(t, reply.Content, "30 second(s)")

	reply = tb.run(t, carol, "tag ping", map[string]string{"group": "ghosts"})
	assert.True(t, isEphemeral(reply))
	assert.Equal(t, emojiFail+" Group `ghosts` does not exist!", reply.Content)
}

func TestTagPing_CooldownDisabled(t *testing.T) {
	tb := newTestBot(t, func(cfg *config.Config) { cfg.Bot.PingCooldown = 0 })
	tb.run(t, alice, "tag join", map[string]string{"group": "raiders"})

	for i := 0; i < 3; i++ {
		reply := tb.run(t, alice, "tag ping", map[string]string{"group": "raiders"})
		assert.False(t, isEphemeral(reply), "ping %d", i)
	}
}

func TestTagPing_CooldownPerTag(t *testing.T) {
	tb := newTestBot(t, func(cfg *config.Config) { cfg.Bot.PingCooldown = time.Hour })
	tb.run(t, alice, "tag join", map[string]string{"group": "raiders"})
	tb.run(t, alice, "tag join", map[string]string{"group": "crafters"})

	assert.False(t, isEphemeral(tb.run(t, alice, "tag ping", map[string]string{"group": "raiders"})))
	assert.False(t, isEphemeral(tb.run(t, alice, "tag ping", map[string]string{"group": "crafters"})))
	assert.True(t, isEphemeral(tb.run(t, alice, "tag ping", map[string]string{"group": "raiders"})))
}

func TestTagAdd(t *testing.T) {
	tb := newTestBot(t, nil)
	tb.run(t, bob, "tag join", map[string]string{"group": "raiders"})

	reply := tb.run(t, alice, "tag add", map[string]string{
		"users": "<@111111111111111111> <@!222222222222222222> 333333333333333333 <@111111111111111111>",
		"group": "Raiders",
	})
	assert.True(t, isEphemeral(reply))
	assert.Equal(t, "Added 2 user(s) to group `raiders`! <@222222222222222222> is already in the group.", reply.Content)

	members, err := tb.store.MembersOfTag(context.Background(), testGuild, "raiders")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{alice, bob, carol}, members)

	reply = tb.run(t, alice, "tag add", map[string]string{
		"users": "<@111111111111111111> <@222222222222222222>",
		"group": "raiders",
	})
	assert.Equal(t,
		"Added 0 user(s) to group `raiders`! <@111111111111111111> <@222222222222222222> are already in the group.",
		reply.Content)
}

func TestTagAdd_NoUsers(t *testing.T) {
	tb := newTestBot(t, nil)
	reply := tb.run(t, alice, "tag add", map[string]string{"users": "nobody", "group": "raiders"})
	assert.Equal(t, msgNoUsers, reply.Content)
}

func TestTagAdd_Restricted(t *testing.T) {
	tb := newTestBot(t, func(cfg *config.Config) { cfg.Bot.RestrictTagAdd = true })
	opts := map[string]string{"users": "<@333333333333333333>", "group": "raiders"}

	reply := tb.run(t, alice, "tag add", opts)
	assert.Equal(t, msgAdminsOnly, reply.Content)

	_, err := tb.store.AddAdmin(context.Background(), testGuild, alice)
	require.NoError(t, err)
	reply = tb.run(t, alice, "tag add", opts)
	assert.Equal(t, "Added 1 user(s) to group `raiders`!", reply.Content)

	opts["users"] = "<@222222222222222222>"
	reply = tb.run(t, dev, "tag add", opts)
	assert.Equal(t, "Added 1 user(s) to group `raiders`!", reply.Content)
}

func TestTagMembers(t *testing.T) {
	tb := newTestBot(t, nil)

	reply := tb.run(t, alice, "tag members", map[string]string{"group": "raiders"})
	assert.Equal(t, emojiFail+" Group `raiders` does not exist!", reply.Content)

	tb.run(t, alice, "tag join", map[string]string{"group": "raiders"})
	tb.run(t, bob, "tag join", map[string]string{"group": "raiders"})

	reply = tb.run(t, carol, "tag members", map[string]string{"group": "RAIDERS"})
	assert.True(t, isEphemeral(reply))
	require.Len(t, reply.Embeds, 1)
	assert.Equal(t, "Users in 'raiders'", reply.Embeds[0].Author.Name)
	assert.Equal(t, "* <@111111111111111111>\n* <@222222222222222222>", reply.Embeds[0].Description)
}

func TestTagList(t *testing.T) {
	tb := newTestBot(t, nil)

	reply := tb.run(t, alice, "tag list", nil)
	assert.Equal(t, emojiPartial+" <@111111111111111111> is not in any groups!", reply.Content)

	tb.run(t, bob, "tag join", map[string]string{"group": "zeta"})
	tb.run(t, bob, "tag join", map[string]string{"group": "alpha"})

	rec := &recorder{}
	tb.router.Dispatch(context.Background(), &Invocation{
		GuildID: testGuild,
		Author:  User{ID: alice, Name: "alice"},
		Command: "tag list",
		Options: map[string]string{"user": "222222222222222222"},
		Users:   map[int64]User{bob: {ID: bob, Name: "bob", AvatarURL: "https://cdn.example/bob.png"}},
	}, rec)
	reply = rec.last(t)
	require.Len(t, reply.Embeds, 1)
	assert.Equal(t, "bob's tags", reply.Embeds[0].Author.Name)
	assert.Equal(t, "https://cdn.example/bob.png", reply.Embeds[0].Author.IconURL)
	assert.Equal(t, "* **`zeta`**\n* **`alpha`**", reply.Embeds[0].Description)
}

func TestStorageErrorGetsGenericReply(t *testing.T) {
	tb := newTestBotWithStore(t, testConfig(), brokenStore{err: errStorage})

	var seen *hook.CommandEvent
	tb.hooks.Register(hook.AfterCommand, 0, "capture", func(_ context.Context, ev *hook.CommandEvent) error {
		seen = ev
		return nil
	})

	commands := []struct {
		command string
		opts    map[string]string
	}{
		{"tag join", map[string]string{"group": "raiders"}},
		{"tag leave", map[string]string{"group": "raiders"}},
		{"tag all", nil},
		{"tag ping", map[string]string{"group": "raiders"}},
		{"tag add", map[string]string{"users": "<@1234567890123456>", "group": "raiders"}},
		{"tag members", map[string]string{"group": "raiders"}},
		{"tag list", nil},
		{"admins list", nil},
	}
	for _, c := range commands {
		t.Run(c.command, func(t *testing.T) {
			seen = nil
			reply := tb.run(t, alice, c.command, c.opts)
			assert.True(t, isEphemeral(reply))
			assert.Equal(t, msgUnexpected, reply.Content)
			require.NotNil(t, seen)
			assert.Equal(t, OutcomeError, seen.Outcome)
			assert.ErrorIs(t, seen.Err, errStorage)
		})
	}
}

func TestParseUserRefs(t *testing.T) {
	tests := []struct {
		in   string
		want []int64
	}{
		{"", nil},
		{"hello there", nil},
		{"<@111111111111111111>", []int64{alice}},
		{"<@!222222222222222222>,<@111111111111111111>", []int64{bob, alice}},
		{"333333333333333333 <@333333333333333333>", []int64{carol}},
		{"12345", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseUserRefs(tt.in), "input %q", tt.in)
	}
}
