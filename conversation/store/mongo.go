package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/glowstack/dermassist/conversation"
)

// MongoHistory persists conversation turns in a MongoDB collection indexed
// by session and timestamp.
type MongoHistory struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns default MongoDB configuration.
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "dermassist",
		Collection: "turns",
	}
}

type mongoTurn struct {
	SessionID string            `bson:"session_id"`
	Turn      conversation.Turn `bson:"turn"`
	CreatedAt time.Time         `bson:"created_at"`
}

// NewMongoHistory creates a MongoDB-backed history store.
func NewMongoHistory(config *MongoConfig) (*MongoHistory, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)
	store := &MongoHistory{
		client:     client,
		collection: collection,
	}
	if err := store.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return store, nil
}

func (s *MongoHistory) createIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "session_id", Value: 1},
			{Key: "created_at", Value: 1},
		},
	}
	_, err := s.collection.Indexes().CreateOne(ctx, indexModel)
	return err
}

// Read returns the session's turns ordered by creation time.
func (s *MongoHistory) Read(ctx context.Context, sessionID string) ([]conversation.Turn, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	var turns []conversation.Turn
	for cursor.Next(ctx) {
		var doc mongoTurn
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode turn for %s: %w", sessionID, err)
		}
		turns = append(turns, doc.Turn)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate history %s: %w", sessionID, err)
	}
	return turns, nil
}

// Append inserts a new turn document for the session.
func (s *MongoHistory) Append(ctx context.Context, sessionID string, turn conversation.Turn) error {
	doc := mongoTurn{
		SessionID: sessionID,
		Turn:      turn,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append history %s: %w", sessionID, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoHistory) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
