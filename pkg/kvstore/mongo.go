package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/menugr/menugr/config"
)

const mongoCollection = "saved_carts"

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo keeps one document per key, using the key as _id.
type Mongo struct {
	client *mongo.Client
	col    *mongo.Collection
}

// NewMongo wraps an existing collection. client may be nil when the caller
// owns the connection.
func NewMongo(client *mongo.Client, col *mongo.Collection) *Mongo {
	return &Mongo{client: client, col: col}
}

// NewMongoFromConfig connects to MONGO_URI and pings it.
func NewMongoFromConfig(ctx context.Context) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(config.MongoURI()).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("kvstore/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("kvstore/mongo: ping: %w", err)
	}

	return NewMongo(client, client.Database(config.MongoDB()).Collection(mongoCollection)), nil
}

// Get implements Store.
func (m *Mongo) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	var doc mongoEntry
	err := m.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore/mongo: find %s: %w", key, err)
	}
	return doc.Value, true, nil
}

// Set implements Store.
func (m *Mongo) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := m.col.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("kvstore/mongo: upsert %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (m *Mongo) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := m.col.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("kvstore/mongo: delete %s: %w", key, err)
	}
	return nil
}

// Close releases the connection.
func (m *Mongo) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
