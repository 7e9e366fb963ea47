package sink

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assertscan/pkg/errors"
)

const (
	mongoDatabase   = "assertscan"
	mongoCollection = "scans"
	mongoTimeout    = 10 * time.Second
)

// MongoSink inserts one document per record into a MongoDB collection.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSink connects to the given MongoDB URI and verifies the
// connection with a ping.
func NewMongoSink(ctx context.Context, uri string) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "pinging mongodb")
	}

	return &MongoSink{
		client: client,
		coll:   client.Database(mongoDatabase).Collection(mongoCollection),
	}, nil
}

// Append inserts the record as a single document.
func (s *MongoSink) Append(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "inserting record for %s", rec.Package)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
