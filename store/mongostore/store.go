// Package mongostore keeps guild records as documents in a MongoDB
// collection. Every write is a single server-side update, so concurrent
// commands on the same guild never overwrite each other.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/theseus-bot/theseus/model"
	"github.com/theseus-bot/theseus/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	CollectionGuilds = "guilds"

	// upsertAttempts covers the duplicate-key race of two first writes to
	// the same guild.
	upsertAttempts = 3
)

// Store implements store.Store over a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// New returns a Store using the guilds collection of database dbName.
func New(client *mongo.Client, dbName string, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		coll:   client.Database(dbName).Collection(CollectionGuilds),
		logger: logger,
	}
}

// EnsureIndexes creates the unique guildId index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "guildId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("guildId_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongostore: create index: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, guildID int64) (*model.Guild, error) {
	var g model.Guild
	err := s.coll.FindOne(ctx, bson.M{"guildId": guildID}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: load guild %d: %w", guildID, err)
	}
	return &g, nil
}

// upsertBefore runs a pipeline upsert on the guild and returns the document
// as it was before the update, or nil if the update inserted it.
func (s *Store) upsertBefore(ctx context.Context, guildID int64, pipeline mongo.Pipeline) (*model.Guild, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var err error
	for attempt := 1; attempt <= upsertAttempts; attempt++ {
		var before model.Guild
		err = s.coll.FindOneAndUpdate(ctx, bson.M{"guildId": guildID}, pipeline, opts).Decode(&before)
		switch {
		case err == nil:
			return &before, nil
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, nil
		case mongo.IsDuplicateKeyError(err):
			s.logger.Debug("concurrent guild insert, retrying",
				zap.Int64("guild_id", guildID),
				zap.Int("attempt", attempt))
			continue
		default:
			return nil, fmt.Errorf("mongostore: update guild %d: %w", guildID, err)
		}
	}
	return nil, fmt.Errorf("mongostore: update guild %d: %w", guildID, err)
}

func (s *Store) ListTags(ctx context.Context, guildID int64) (map[string]int, error) {
	g, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return store.ListTags(g), nil
}

// JoinTag appends memberID to the tag (or appends a new tag) in one write.
// A member already present leaves the document unchanged; that case is
// detected from the pre-image.
func (s *Store) JoinTag(ctx context.Context, guildID int64, name string, memberID int64) (bool, error) {
	before, err := s.upsertBefore(ctx, guildID, joinPipeline(name, memberID))
	if err != nil {
		return false, err
	}
	if before == nil {
		return true, nil
	}
	if err := store.JoinTag(before, name, memberID); err != nil {
		return false, err
	}
	return false, nil
}

// LeaveTag removes memberID and drops the tag if that emptied it, in one
// write conditioned on the membership.
func (s *Store) LeaveTag(ctx context.Context, guildID int64, name string, memberID int64) (bool, error) {
	filter := bson.M{
		"guildId": guildID,
		"tags":    bson.M{"$elemMatch": bson.M{"name": name, "members": memberID}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var after model.Guild
	err := s.coll.FindOneAndUpdate(ctx, filter, leavePipeline(name, memberID), opts).Decode(&after)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.coll.CountDocuments(ctx, bson.M{"guildId": guildID, "tags.name": name})
		if cerr != nil {
			return false, fmt.Errorf("mongostore: count tag %q in guild %d: %w", name, guildID, cerr)
		}
		if n == 0 {
			return false, store.ErrTagNotFound
		}
		return false, store.ErrNotMember
	}
	if err != nil {
		return false, fmt.Errorf("mongostore: update guild %d: %w", guildID, err)
	}
	_, err = store.MembersOfTag(&after, name)
	return errors.Is(err, store.ErrTagNotFound), nil
}

func (s *Store) TagsForUser(ctx context.Context, guildID int64, memberID int64) ([]string, error) {
	g, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return store.TagsForUser(g, memberID), nil
}

func (s *Store) MembersOfTag(ctx context.Context, guildID int64, name string) ([]int64, error) {
	g, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return store.MembersOfTag(g, name)
}

func (s *Store) IsAdmin(ctx context.Context, guildID int64, userID int64) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"guildId": guildID, "admins": userID})
	if err != nil {
		return false, fmt.Errorf("mongostore: count admins of guild %d: %w", guildID, err)
	}
	return n > 0, nil
}

func (s *Store) Admins(ctx context.Context, guildID int64) ([]int64, error) {
	g, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if g == nil || g.Admins == nil {
		return []int64{}, nil
	}
	return g.Admins, nil
}

func (s *Store) AddAdmin(ctx context.Context, guildID int64, userID int64) (bool, error) {
	before, err := s.upsertBefore(ctx, guildID, addAdminPipeline(userID))
	if err != nil {
		return false, err
	}
	if before == nil {
		return true, nil
	}
	if store.IsAdmin(before, userID) {
		return false, store.ErrAlreadyAdmin
	}
	return false, nil
}

func (s *Store) RemoveAdmin(ctx context.Context, guildID int64, userID int64) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"guildId": guildID, "admins": userID},
		bson.M{"$pull": bson.M{"admins": userID}})
	if err != nil {
		return fmt.Errorf("mongostore: update guild %d: %w", guildID, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotAdmin
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
