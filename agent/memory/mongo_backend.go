package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoBackendConfig contains MongoDB-specific configuration
type MongoBackendConfig struct {
	URI        string `json:"uri" yaml:"uri"`
	Database   string `json:"database" yaml:"database"`
	Collection string `json:"collection" yaml:"collection"`
}

// Defaults applied when MongoBackendConfig fields are empty.
const (
	DefaultMongoDatabase   = "uipilot"
	DefaultMongoCollection = "selector_memory"
)

// mongoDocument 每个智能体一条文档，data 保存与文件后端相同的 JSON 文本
type mongoDocument struct {
	Agent     string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoBackend keeps each agent's snapshot in one document keyed by agent name.
type MongoBackend struct {
	coll   *mongo.Collection
	client *mongo.Client
	agent  string
	owned  bool
}

// NewMongoBackend uses an existing collection. Close leaves the client connected.
func NewMongoBackend(coll *mongo.Collection, agentName string) (*MongoBackend, error) {
	if agentName == "" {
		return nil, ErrInvalidName
	}
	if coll == nil {
		return nil, fmt.Errorf("mongo collection cannot be nil")
	}
	return &MongoBackend{coll: coll, client: coll.Database().Client(), agent: agentName}, nil
}

// DialMongoBackend connects to MongoDB and verifies the connection.
func DialMongoBackend(ctx context.Context, cfg MongoBackendConfig, agentName string) (*MongoBackend, error) {
	if agentName == "" {
		return nil, ErrInvalidName
	}
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo backend requires uri")
	}
	cfg = cfg.withDefaults()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	return &MongoBackend{
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		client: client,
		agent:  agentName,
		owned:  true,
	}, nil
}

func (c MongoBackendConfig) withDefaults() MongoBackendConfig {
	if c.Database == "" {
		c.Database = DefaultMongoDatabase
	}
	if c.Collection == "" {
		c.Collection = DefaultMongoCollection
	}
	return c
}

func (b *MongoBackend) filter() bson.D {
	return bson.D{{Key: "_id", Value: b.agent}}
}

// Location implements Backend.
func (b *MongoBackend) Location() string {
	return "mongodb://" + b.coll.Database().Name() + "/" + b.coll.Name() + "?agent=" + b.agent
}

// Load implements Backend.
func (b *MongoBackend) Load(ctx context.Context) (Snapshot, error) {
	var doc mongoDocument
	err := b.coll.FindOne(ctx, b.filter()).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find %s: %w", b.agent, err)
	}
	return decodeSnapshot([]byte(doc.Data))
}

// Save implements Backend. The document is replaced whole, created when absent.
func (b *MongoBackend) Save(ctx context.Context, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to encode selector memory: %w", err)
	}
	doc := mongoDocument{Agent: b.agent, Data: string(data), UpdatedAt: time.Now().UTC()}
	if _, err := b.coll.ReplaceOne(ctx, b.filter(), doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("mongo replace %s: %w", b.agent, err)
	}
	return nil
}

// Close implements Backend.
func (b *MongoBackend) Close() error {
	if !b.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}
