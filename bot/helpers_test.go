package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
	"github.com/theseus-bot/theseus/config"
	"github.com/theseus-bot/theseus/hook"
	"github.com/theseus-bot/theseus/store"
	"github.com/theseus-bot/theseus/testutil"
	"go.uber.org/zap"
)

const (
	testGuild int64 = 4242
	alice     int64 = 111111111111111111
	bob       int64 = 222222222222222222
	carol     int64 = 333333333333333333
	dev       int64 = 999999999999999999
)

type recorder struct {
	mu      sync.Mutex
	replies []*discordgo.InteractionResponseData
	err     error
}

func (r *recorder) Respond(_ context.Context, data *discordgo.InteractionResponseData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, data)
	return r.err
}

// last returns the only reply; handlers answer each interaction once.
func (r *recorder) last(t *testing.T) *discordgo.InteractionResponseData {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.replies, 1, "expected exactly one reply")
	return r.replies[0]
}

func testConfig() *config.Config {
	return &config.Config{
		Database:   "theseus",
		Developers: []string{"999999999999999999"},
		Bot: config.BotConfig{
			PingCooldown: 30 * time.Second,
			EmbedColor:   0x2b2d31,
		},
		Storage: config.StorageConfig{Timeout: 5 * time.Second},
	}
}

type testBot struct {
	*Bot
	hooks *hook.Center
	store store.Store
}

func newTestBot(t *testing.T, mutate func(cfg *config.Config)) *testBot {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return newTestBotWithStore(t, cfg, testutil.SetupTestStore(t))
}

func newTestBotWithStore(t *testing.T, cfg *config.Config, st store.Store) *testBot {
	t.Helper()
	hooks := hook.NewCenter()
	b := New(cfg, st, testutil.SetupTestCache(t), hooks, zap.NewNop())
	return &testBot{Bot: b, hooks: hooks, store: st}
}

// run dispatches command as author in the test guild and returns the reply.
func (tb *testBot) run(t *testing.T, author int64, command string, opts map[string]string) *discordgo.InteractionResponseData {
	t.Helper()
	rec := &recorder{}
	tb.router.Dispatch(context.Background(), &Invocation{
		GuildID:   testGuild,
		GuildName: "Ithaca",
		GuildIcon: "https://cdn.example/icon.png",
		Author:    User{ID: author, Name: "author"},
		Command:   command,
		Options:   opts,
	}, rec)
	return rec.last(t)
}

func isEphemeral(data *discordgo.InteractionResponseData) bool {
	return data.Flags&discordgo.MessageFlagsEphemeral != 0
}

// brokenStore fails every call with err.
type brokenStore struct {
	store.Store
	err error
}

var errStorage = errors.New("storage offline")

func (s brokenStore) ListTags(context.Context, int64) (map[string]int, error) { return nil, s.err }
func (s brokenStore) JoinTag(context.Context, int64, string, int64) (bool, error) {
	return false, s.err
}
func (s brokenStore) LeaveTag(context.Context, int64, string, int64) (bool, error) {
	return false, s.err
}
func (s brokenStore) TagsForUser(context.Context, int64, int64) ([]string, error) {
	return nil, s.err
}
func (s brokenStore) MembersOfTag(context.Context, int64, string) ([]int64, error) {
	return nil, s.err
}
func (s brokenStore) Admins(context.Context, int64) ([]int64, error) { return nil, s.err }
