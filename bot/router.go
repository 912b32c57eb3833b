package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theseus-bot/theseus/hook"
	"github.com/theseus-bot/theseus/middleware"
	"go.uber.org/zap"
)

// Command outcomes recorded on hook.CommandEvent.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// HandlerFunc handles one command. Expected failures are answered and return
// nil; anything else is answered with the generic failure reply and returned.
type HandlerFunc func(ctx context.Context, inv *Invocation, r Responder) error

// Router dispatches invocations to registered handlers.
type Router struct {
	handlers map[string]HandlerFunc
	hooks    *hook.Center
	logger   *zap.Logger
}

// NewRouter creates a new Router. hooks may be nil.
func NewRouter(hooks *hook.Center, logger *zap.Logger) *Router {
	if hooks == nil {
		hooks = hook.NewCenter()
	}
	return &Router{
		handlers: make(map[string]HandlerFunc),
		hooks:    hooks,
		logger:   logger,
	}
}

// On registers fn for a command path such as "tag join".
func (r *Router) On(command string, fn HandlerFunc) {
	r.handlers[command] = fn
}

// Commands returns the registered command paths.
func (r *Router) Commands() []string {
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	return out
}

// Dispatch runs the before hooks, the handler and the after hooks for inv.
func (r *Router) Dispatch(ctx context.Context, inv *Invocation, resp Responder) {
	if inv.TraceID == "" {
		inv.TraceID = middleware.NewTraceID()
	}
	log := r.logger.With(
		zap.String("trace_id", inv.TraceID),
		zap.String("command", inv.Command),
		zap.Int64("guild_id", inv.GuildID),
		zap.Int64("user_id", inv.Author.ID),
	)

	if inv.GuildID == 0 {
		r.respond(ctx, log, resp, msgGuildOnly)
		return
	}

	start := time.Now()
	ev := &hook.CommandEvent{
		TraceID: inv.TraceID,
		GuildID: inv.GuildID,
		UserID:  inv.Author.ID,
		Command: inv.Command,
		Options: inv.Options,
	}
	defer func() {
		ev.Duration = time.Since(start)
		if err := r.hooks.Trigger(ctx, hook.AfterCommand, ev); err != nil {
			log.Warn("after_command hook failed", zap.Error(err))
		}
	}()

	if err := r.hooks.Trigger(ctx, hook.BeforeCommand, ev); err != nil {
		var in *hook.Interrupt
		if errors.As(err, &in) {
			ev.Outcome = OutcomeRejected
			ev.Err = err
			log.Debug("command interrupted", zap.String("reason", in.Reason))
			r.respond(ctx, log, resp, in.Message)
			return
		}
		log.Warn("before_command hook failed", zap.Error(err))
	}

	fn, ok := r.handlers[inv.Command]
	if !ok {
		log.Debug("unhandled command")
		ev.Outcome = OutcomeRejected
		r.respond(ctx, log, resp, msgNoSubcommand)
		return
	}

	err := r.call(ctx, fn, inv, resp)
	ev.Err = err
	if err != nil {
		ev.Outcome = OutcomeError
		log.Error("handler error", zap.Error(err))
		return
	}
	ev.Outcome = OutcomeOK
}

// call runs fn, turning a panic into an error after the generic reply.
func (r *Router) call(ctx context.Context, fn HandlerFunc, inv *Invocation, resp Responder) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic recovered",
				zap.Any("error", p),
				zap.String("trace_id", inv.TraceID),
				zap.Stack("stack"))
			_ = resp.Respond(ctx, ephemeral(msgUnexpected))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, inv, resp)
}

func (r *Router) respond(ctx context.Context, log *zap.Logger, resp Responder, msg string) {
	if err := resp.Respond(ctx, ephemeral(msg)); err != nil {
		log.Warn("respond failed", zap.Error(err))
	}
}
