package db

import (
	"context"
	"fmt"

	"github.com/theseus-bot/theseus/config"
	dbmongo "github.com/theseus-bot/theseus/db/mongo"
	dbmysql "github.com/theseus-bot/theseus/db/mysql"
	dbsqlite "github.com/theseus-bot/theseus/db/sqlite"
	"github.com/theseus-bot/theseus/model"
	"github.com/theseus-bot/theseus/store"
	"github.com/theseus-bot/theseus/store/mongostore"
	"github.com/theseus-bot/theseus/store/sqlstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ModeMongo  = "mongo"
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Open returns a *gorm.DB for the SQL storage modes.
func Open(cfg config.StorageConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		})
	default:
		return nil, fmt.Errorf("db: mode %q is not a SQL mode", cfg.Mode)
	}
}

// OpenStore returns the tag store selected by cfg.Storage.Mode.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Storage.Mode {
	case ModeMongo:
		client, err := dbmongo.Open(ctx, cfg.Storage.MongoURI, cfg.Storage.Timeout)
		if err != nil {
			return nil, err
		}
		s := mongostore.New(client, cfg.Database, logger)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		return s, nil
	case ModeSQLite, ModeMySQL:
		gdb, err := Open(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if err := model.AutoMigrate(gdb); err != nil {
			return nil, fmt.Errorf("db: migrate: %w", err)
		}
		return sqlstore.New(gdb, logger), nil
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Storage.Mode)
	}
}

// OpenAudit returns the database backing the audit log.
func OpenAudit(cfg config.AuditConfig) (*gorm.DB, error) {
	var (
		gdb *gorm.DB
		err error
	)
	if cfg.MySQLDSN != "" {
		gdb, err = dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{MaxOpen: 4, MaxIdle: 2})
	} else {
		gdb, err = dbsqlite.Open(cfg.SQLitePath)
	}
	if err != nil {
		return nil, err
	}
	if err := model.AutoMigrateAudit(gdb); err != nil {
		return nil, fmt.Errorf("db: migrate audit: %w", err)
	}
	return gdb, nil
}
