// Package mongoconn adapts a MongoDB database to querydoc.Store.
package mongoconn

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/querydoc"
)

const connectTimeout = 10 * time.Second

// Store is one document link: a client bound to a single database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ querydoc.Store = (*Store)(nil)

// Open connects to uri and pings the server. database names the database
// every collection is looked up in.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		return nil, fmt.Errorf("mongo link %q: database name is required", uri)
	}
	opts := mopt.Client().ApplyURI(uri)
	opts.SetConnectTimeout(connectTimeout).SetServerSelectionTimeout(connectTimeout)
	// One link is one handle.
	opts.SetMaxPoolSize(1)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Backend returns a querydoc.Backend running on this link.
func (s *Store) Backend(logger *slog.Logger) *querydoc.Backend {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return querydoc.NewBackend(s, logger.With("backend", "document"))
}

// Find implements querydoc.Store.
func (s *Store) Find(ctx context.Context, collection string, filter bson.D, opts querydoc.FindOptions) ([]ir.Row, error) {
	findOpts := mopt.Find()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(opts.Sort)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if len(opts.Projection) > 0 {
		findOpts.SetProjection(opts.Projection)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rows := []ir.Row{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rows = append(rows, Row(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Count implements querydoc.Store.
func (s *Store) Count(ctx context.Context, collection string, filter bson.D) (int64, error) {
	return s.db.Collection(collection).CountDocuments(ctx, filter)
}

// InsertOne implements querydoc.Store.
func (s *Store) InsertOne(ctx context.Context, collection string, doc bson.D) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, doc)
	return err
}

// UpdateMany implements querydoc.Store with a $set update.
func (s *Store) UpdateMany(ctx context.Context, collection string, filter bson.D, set bson.D) (int64, error) {
	res, err := s.db.Collection(collection).UpdateMany(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteMany implements querydoc.Store.
func (s *Store) DeleteMany(ctx context.Context, collection string, filter bson.D) (int64, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CollectionExists implements querydoc.Store.
func (s *Store) CollectionExists(ctx context.Context, collection string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: collection}})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// Row converts a decoded document into a row of plain Go values.
func Row(doc bson.M) ir.Row {
	row := make(ir.Row, len(doc))
	for k, v := range doc {
		row[k] = normalize(v)
	}
	return row
}

// normalize replaces driver-specific types: ObjectIDs become hex strings,
// DateTimes become time.Time, nested documents and arrays become maps and
// slices.
func normalize(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(val.T), 0).UTC()
	case primitive.Decimal128:
		return val.String()
	case primitive.Binary:
		return val.Data
	case int32:
		return int64(val)
	case bson.M:
		return map[string]any(Row(val))
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		return out
	default:
		return v
	}
}
