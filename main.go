package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/theseus-bot/theseus/api/rest"
	"github.com/theseus-bot/theseus/audit"
	"github.com/theseus-bot/theseus/bot"
	"github.com/theseus-bot/theseus/cache"
	"github.com/theseus-bot/theseus/config"
	dbadapter "github.com/theseus-bot/theseus/db"
	"github.com/theseus-bot/theseus/hook"
	mw "github.com/theseus-bot/theseus/middleware"
	"github.com/theseus-bot/theseus/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const storeProbeInterval = time.Minute

func main() {
	cfgPath := "config.json"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "'%s' not found. Please configure the bot before running it.\n", cfgPath)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Bot.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Store ----
	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	st, err := dbadapter.OpenStore(openCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("store", zap.String("mode", cfg.Storage.Mode), zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warn("store close", zap.Error(err))
		}
	}()
	logger.Info("Store initialized", zap.String("mode", cfg.Storage.Mode))

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	defer c.Close()
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Hooks / Audit ----
	hooks := hook.NewCenter()
	var auditSvc *audit.Service
	if cfg.Audit.Enabled {
		auditDB, err := dbadapter.OpenAudit(cfg.Audit)
		if err != nil {
			logger.Fatal("audit db", zap.Error(err))
		}
		auditSvc = audit.New(auditDB, logger)
		defer auditSvc.Stop(context.Background())
		auditSvc.Register(hooks)
		logger.Info("Audit initialized")
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker(apirest.StoreProbeTask, storeProbeInterval, scheduler.PingTask(st, cfg.Storage.Timeout))

	// ---- HTTP ----
	var srv *http.Server
	if cfg.HTTP.Enabled {
		if cfg.HTTP.AdminKey == "" {
			logger.Warn("http.admin_key is not set; admin endpoints are disabled")
		}
		if !cfg.Bot.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		r := gin.New()
		r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
		r.Use(mw.RateLimit(rate.Limit(cfg.HTTP.RateLimitRPS), cfg.HTTP.RateLimitBurst))

		var auditReader apirest.AuditReader
		if auditSvc != nil {
			auditReader = auditSvc
		}
		apirest.Routes(r, cfg.HTTP.AdminKey,
			apirest.NewHealthHandler(st, sched),
			apirest.NewAdminHandler(st, sched, auditReader, logger))

		srv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTP.Port), Handler: r}
		go func() {
			logger.Info("HTTP listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server", zap.Error(err))
				stop()
			}
		}()
	}

	// ---- Bot ----
	b := bot.New(cfg, st, c, hooks, logger)
	if err := b.Open(); err != nil {
		logger.Fatal("discord", zap.Error(err))
	}
	logger.Info("Bot connected")

	<-ctx.Done()
	logger.Info("Shutting down")

	if err := b.Close(); err != nil {
		logger.Warn("discord close", zap.Error(err))
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}
}
