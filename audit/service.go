// Package audit records every command invocation into the audit_logs table.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/theseus-bot/theseus/hook"
	"github.com/theseus-bot/theseus/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Entry holds one command invocation to be logged.
type Entry struct {
	TraceID  string
	GuildID  int64
	UserID   int64
	Command  string
	Options  map[string]string
	Outcome  string
	Error    string
	Duration time.Duration
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.AuditLog
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.AuditLog, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Register installs the service as an after_command hook.
func (svc *Service) Register(hooks *hook.Center) {
	hooks.Register(hook.AfterCommand, 100, "audit", svc.onCommand)
}

func (svc *Service) onCommand(_ context.Context, ev *hook.CommandEvent) error {
	e := Entry{
		TraceID:  ev.TraceID,
		GuildID:  ev.GuildID,
		UserID:   ev.UserID,
		Command:  ev.Command,
		Options:  ev.Options,
		Outcome:  ev.Outcome,
		Duration: ev.Duration,
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}
	svc.Log(e)
	return nil
}

// Log enqueues an audit entry for async DB write. Entries are dropped when
// the queue is full or the service is stopped.
func (svc *Service) Log(entry Entry) {
	opts, err := json.Marshal(entry.Options)
	if err != nil || entry.Options == nil {
		opts = []byte("{}")
	}
	record := &model.AuditLog{
		TraceID:    entry.TraceID,
		GuildID:    entry.GuildID,
		UserID:     entry.UserID,
		Command:    entry.Command,
		Options:    datatypes.JSON(opts),
		Outcome:    entry.Outcome,
		Error:      entry.Error,
		DurationMs: int(entry.Duration.Milliseconds()),
	}
	select {
	case <-svc.stopCh:
		svc.logger.Warn("audit stopped, dropping entry", zap.String("command", entry.Command))
		return
	default:
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("command", entry.Command),
			zap.String("trace_id", entry.TraceID))
	}
}

// Recent returns the newest entries of a guild, newest first.
func (svc *Service) Recent(ctx context.Context, guildID int64, limit int) ([]model.AuditLog, error) {
	if limit <= 0 || limit > batchSize {
		limit = batchSize
	}
	var logs []model.AuditLog
	err := svc.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
