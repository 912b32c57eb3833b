// Package sqlstore keeps guild records in a SQL database through GORM.
// Each record is one row with the admins and tags serialized as JSON;
// writes are compare-and-swap on the row's version column.
package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/theseus-bot/theseus/model"
	"github.com/theseus-bot/theseus/store"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMaxAttempts bounds the compare-and-swap loop of a single write.
const DefaultMaxAttempts = 32

// Store implements store.Store on top of a *gorm.DB.
type Store struct {
	db          *gorm.DB
	logger      *zap.Logger
	maxAttempts int
}

var _ store.Store = (*Store)(nil)

// New wraps db. The guild_records table must already be migrated
// (model.AutoMigrate).
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger, maxAttempts: DefaultMaxAttempts}
}

// load returns the decoded guild document and its version. g is nil when the
// guild has no record.
func (s *Store) load(ctx context.Context, guildID int64) (g *model.Guild, version int64, err error) {
	var rec model.GuildRecord
	res := s.db.WithContext(ctx).Where("guild_id = ?", guildID).Limit(1).Find(&rec)
	if res.Error != nil {
		return nil, 0, fmt.Errorf("sqlstore: load guild %d: %w", guildID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, 0, nil
	}
	g = store.NewGuild(guildID)
	if len(rec.Admins) > 0 {
		if err := json.Unmarshal(rec.Admins, &g.Admins); err != nil {
			return nil, 0, fmt.Errorf("sqlstore: decode admins of guild %d: %w", guildID, err)
		}
	}
	if len(rec.Tags) > 0 {
		if err := json.Unmarshal(rec.Tags, &g.Tags); err != nil {
			return nil, 0, fmt.Errorf("sqlstore: decode tags of guild %d: %w", guildID, err)
		}
	}
	if g.Admins == nil {
		g.Admins = []int64{}
	}
	if g.Tags == nil {
		g.Tags = []model.Tag{}
	}
	return g, rec.Version, nil
}

func encode(g *model.Guild) (admins, tags datatypes.JSON, err error) {
	a, err := json.Marshal(g.Admins)
	if err != nil {
		return nil, nil, err
	}
	t, err := json.Marshal(g.Tags)
	if err != nil {
		return nil, nil, err
	}
	return datatypes.JSON(a), datatypes.JSON(t), nil
}

// mutate applies fn to the current guild document and writes it back only if
// no other writer got there first, retrying on conflict. When the guild has no
// record fn receives a fresh document if create is set, nil otherwise; a nil
// document is never persisted.
func (s *Store) mutate(ctx context.Context, guildID int64, create bool, fn func(g *model.Guild) error) (created bool, err error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		g, version, err := s.load(ctx, guildID)
		if err != nil {
			return false, err
		}

		if g == nil {
			if !create {
				return false, fn(nil)
			}
			g = store.NewGuild(guildID)
			if err := fn(g); err != nil {
				return false, err
			}
			admins, tags, err := encode(g)
			if err != nil {
				return false, fmt.Errorf("sqlstore: encode guild %d: %w", guildID, err)
			}
			rec := &model.GuildRecord{GuildID: guildID, Admins: admins, Tags: tags, Version: 1}
			res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
			if res.Error != nil {
				return false, fmt.Errorf("sqlstore: create guild %d: %w", guildID, res.Error)
			}
			if res.RowsAffected == 1 {
				return true, nil
			}
		} else {
			if err := fn(g); err != nil {
				return false, err
			}
			admins, tags, err := encode(g)
			if err != nil {
				return false, fmt.Errorf("sqlstore: encode guild %d: %w", guildID, err)
			}
			res := s.db.WithContext(ctx).Model(&model.GuildRecord{}).
				Where("guild_id = ? AND version = ?", guildID, version).
				Updates(map[string]interface{}{
					"admins":  admins,
					"tags":    tags,
					"version": version + 1,
				})
			if res.Error != nil {
				return false, fmt.Errorf("sqlstore: update guild %d: %w", guildID, res.Error)
			}
			if res.RowsAffected == 1 {
				return false, nil
			}
		}

		s.logger.Debug("guild record changed underneath, retrying",
			zap.Int64("guild_id", guildID),
			zap.Int("attempt", attempt))
	}
	return false, store.ErrConflict
}

func (s *Store) ListTags(ctx context.Context, guildID int64) (map[string]int, error) {
	g, _, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return store.ListTags(g), nil
}

func (s *Store) JoinTag(ctx context.Context, guildID int64, name string, memberID int64) (bool, error) {
	return s.mutate(ctx, guildID, true, func(g *model.Guild) error {
		return store.JoinTag(g, name, memberID)
	})
}

func (s *Store) LeaveTag(ctx context.Context, guildID int64, name string, memberID int64) (bool, error) {
	var deleted bool
	_, err := s.mutate(ctx, guildID, false, func(g *model.Guild) error {
		var err error
		deleted, err = store.LeaveTag(g, name, memberID)
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *Store) TagsForUser(ctx context.Context, guildID int64, memberID int64) ([]string, error) {
	g, _, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return store.TagsForUser(g, memberID), nil
}

func (s *Store) MembersOfTag(ctx context.Context, guildID int64, name string) ([]int64, error) {
	g, _, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return store.MembersOfTag(g, name)
}

func (s *Store) IsAdmin(ctx context.Context, guildID int64, userID int64) (bool, error) {
	g, _, err := s.load(ctx, guildID)
	if err != nil {
		return false, err
	}
	return store.IsAdmin(g, userID), nil
}

func (s *Store) Admins(ctx context.Context, guildID int64) ([]int64, error) {
	g, _, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return []int64{}, nil
	}
	return g.Admins, nil
}

func (s *Store) AddAdmin(ctx context.Context, guildID int64, userID int64) (bool, error) {
	return s.mutate(ctx, guildID, true, func(g *model.Guild) error {
		return store.AddAdmin(g, userID)
	})
}

func (s *Store) RemoveAdmin(ctx context.Context, guildID int64, userID int64) error {
	_, err := s.mutate(ctx, guildID, false, func(g *model.Guild) error {
		return store.RemoveAdmin(g, userID)
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
