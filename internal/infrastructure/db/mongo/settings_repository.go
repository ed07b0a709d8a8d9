package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

const collectionSettings = "settings"

// SettingsRepository implements ports.SettingsRepository using MongoDB.
type SettingsRepository struct {
	coll *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{coll: db.Collection(collectionSettings)}
}

type mongoSetting struct {
	Key         string    `bson:"key"`
	Value       string    `bson:"value"`
	Description string    `bson:"description,omitempty"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (ms mongoSetting) toDomain() domain.Setting {
	return domain.Setting{
		Key:         ms.Key,
		Value:       ms.Value,
		Description: ms.Description,
		UpdatedAt:   ms.UpdatedAt.UTC(),
	}
}

// List returns all settings ordered by key.
func (r *SettingsRepository) List(ctx context.Context) ([]domain.Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoSetting
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	out := make([]domain.Setting, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var ms mongoSetting
	if err := r.coll.FindOne(ctx, bson.M{"key": key}).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSettingNotFound
		}
		return nil, fmt.Errorf("find setting: %w", err)
	}
	st := ms.toDomain()
	return &st, nil
}

// Update changes the value of an existing key and returns the stored setting.
func (r *SettingsRepository) Update(ctx context.Context, key, value string) (*domain.Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ms mongoSetting
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"key": key}, update, opts).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSettingNotFound
		}
		return nil, fmt.Errorf("update setting: %w", err)
	}
	st := ms.toDomain()
	return &st, nil
}

// InsertMissing upserts each setting with $setOnInsert so stored values are
// never overwritten.
func (r *SettingsRepository) InsertMissing(ctx context.Context, settings []domain.Setting) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	inserted := 0
	for _, st := range settings {
		// key comes from the filter on insert.
		update := bson.M{"$setOnInsert": bson.M{
			"value":       st.Value,
			"description": st.Description,
			"updated_at":  now,
		}}
		res, err := r.coll.UpdateOne(ctx, bson.M{"key": st.Key}, update, options.Update().SetUpsert(true))
		if err != nil {
			return inserted, fmt.Errorf("insert setting %s: %w", st.Key, err)
		}
		if res.UpsertedCount > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func (r *SettingsRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
