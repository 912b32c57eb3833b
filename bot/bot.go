// Package bot is the Discord command layer: it decodes slash-command
// interactions, calls the tag store and renders replies.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/theseus-bot/theseus/cache"
	"github.com/theseus-bot/theseus/config"
	"github.com/theseus-bot/theseus/hook"
	"github.com/theseus-bot/theseus/middleware"
	"github.com/theseus-bot/theseus/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultCommandTimeout = 10 * time.Second

// Bot owns the Discord session and everything command handlers need.
type Bot struct {
	cfg     *config.Config
	store   store.Store
	cache   cache.Cache
	hooks   *hook.Center
	router  *Router
	logger  *zap.Logger
	session *discordgo.Session
	timeout time.Duration
}

// New wires the command handlers and the per-user rate limit hook.
// The Discord session is created by Open.
func New(cfg *config.Config, st store.Store, c cache.Cache, hooks *hook.Center, logger *zap.Logger) *Bot {
	if hooks == nil {
		hooks = hook.NewCenter()
	}
	b := &Bot{
		cfg:     cfg,
		store:   st,
		cache:   c,
		hooks:   hooks,
		router:  NewRouter(hooks, logger),
		logger:  logger,
		timeout: cfg.Storage.Timeout,
	}
	if b.timeout <= 0 {
		b.timeout = defaultCommandTimeout
	}
	if cfg.Bot.RateLimitRPS > 0 {
		burst := cfg.Bot.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		limiter := middleware.NewKeyedLimiter(rate.Limit(cfg.Bot.RateLimitRPS), burst)
		hooks.Register(hook.BeforeCommand, 0, "ratelimit", rateLimitHook(limiter))
	}

	b.router.On("tag join", b.tagJoin)
	b.router.On("tag leave", b.tagLeave)
	b.router.On("tag all", b.tagAll)
	b.router.On("tag ping", b.tagPing)
	b.router.On("tag add", b.tagAdd)
	b.router.On("tag members", b.tagMembers)
	b.router.On("tag list", b.tagList)
	b.router.On("admins grant", b.adminsGrant)
	b.router.On("admins revoke", b.adminsRevoke)
	b.router.On("admins list", b.adminsList)
	return b
}

// Router exposes the command router.
func (b *Bot) Router() *Router { return b.router }

// Open connects to the gateway. Commands are registered on Ready.
func (b *Bot) Open() error {
	if b.cfg.Discord.Token == "" {
		return fmt.Errorf("bot: discord token is empty (set TOKEN)")
	}
	s, err := discordgo.New("Bot " + b.cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("bot: new session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	s.AddHandler(b.onReady)
	s.AddHandler(b.onInteractionCreate)
	if err := s.Open(); err != nil {
		return fmt.Errorf("bot: open gateway: %w", err)
	}
	b.session = s
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	if b.session == nil {
		return nil
	}
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("THESEUS is ready",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))

	guildID := b.cfg.Bot.DevGuildID
	cmds, err := s.ApplicationCommandBulkOverwrite(r.User.ID, guildID, Commands())
	if err != nil {
		b.logger.Error("register commands failed", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	b.logger.Info("commands registered", zap.Int("count", len(cmds)), zap.String("guild_id", guildID))
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	b.router.Dispatch(ctx, newInvocation(s.State, i.Interaction), &interactionResponder{s: s, i: i.Interaction})
}

// fail sends the generic failure reply and hands err back to the router.
func (b *Bot) fail(ctx context.Context, r Responder, err error) error {
	if rerr := r.Respond(ctx, ephemeral(msgUnexpected)); rerr != nil {
		b.logger.Warn("respond failed", zap.Error(rerr))
	}
	return err
}

func (b *Bot) isDeveloper(id int64) bool { return b.cfg.IsDeveloper(id) }

func rateLimitHook(l *middleware.KeyedLimiter) hook.Fn {
	return func(_ context.Context, ev *hook.CommandEvent) error {
		if l.Allow(strconv.FormatInt(ev.UserID, 10)) {
			return nil
		}
		return &hook.Interrupt{Reason: "rate_limited", Message: msgTooFast}
	}
}
