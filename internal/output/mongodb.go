// internal/output/mongodb.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jungyu/DataScout-sub003/internal/extract"
)

// MongoDBWriter inserts records as documents into one collection.
type MongoDBWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	batchSize  int
}

// NewMongoDBWriter connects to the given DSN and targets the configured
// database and collection.
func NewMongoDBWriter(ctx context.Context, config Config) (*MongoDBWriter, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("mongodb output requires a DSN")
	}
	database := config.Database
	if database == "" {
		database = "datascout"
	}
	collection := config.Collection
	if collection == "" {
		collection = "records"
	}
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(config.DSN))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoDBWriter{
		client:     client,
		collection: client.Database(database).Collection(collection),
		batchSize:  batchSize,
	}, nil
}

// Write inserts the flattened records in batches. Documents keep native
// value types; only metadata is renamed into top-level fields.
func (w *MongoDBWriter) Write(ctx context.Context, records []extract.Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = flatten(rec)
	}

	opts := options.InsertMany().SetOrdered(false)
	for start := 0; start < len(docs); start += w.batchSize {
		end := start + w.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if _, err := w.collection.InsertMany(ctx, docs[start:end], opts); err != nil {
			return fmt.Errorf("insert into %s: %w", w.collection.Name(), err)
		}
	}
	return nil
}

// Close disconnects the client.
func (w *MongoDBWriter) Close() error {
	if w.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := w.client.Disconnect(ctx)
	w.client = nil
	return err
}
