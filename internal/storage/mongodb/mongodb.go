// Package mongodb implements the document store on MongoDB.
package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/shelfsafe/internal/domain/inventory"
)

var _ inventory.Store = (*Store)(nil)

// Store wraps a connected client and one database. Create it once at startup,
// share it by reference and Close it on shutdown.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	tracer trace.Tracer
}

// Options configures Connect.
type Options struct {
	URI      string
	Database string
	// Timeout bounds every operation that has no earlier context deadline.
	Timeout time.Duration
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Connect dials the server using the Stable API v1 and binds the store to
// the configured database. The connection is verified lazily by Ping.
func Connect(ctx context.Context, o Options) (*Store, error) {
	if o.Database == "" {
		return nil, errors.New("database name is required")
	}
	opts := options.Client().
		ApplyURI(o.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	if o.Timeout > 0 {
		opts.SetTimeout(o.Timeout)
	}
	tp := o.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	return &Store{
		client: client,
		db:     client.Database(o.Database),
		tracer: tp.Tracer("github.com/xenking/shelfsafe/internal/storage/mongodb"),
	}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Wrap(err, "ping")
	}
	return nil
}

// ListCollection returns every document of collection name matching filter,
// in the order the server yields them.
func (s *Store) ListCollection(ctx context.Context, name string, filter inventory.Filter) (_ []bson.D, rerr error) {
	ctx, span := s.tracer.Start(ctx, "mongodb.find",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.name", s.db.Name()),
			attribute.String("db.collection.name", name),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	cur, err := s.db.Collection(name).Find(ctx, toBSON(filter))
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", name)
	}

	docs := []bson.D{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	span.SetAttributes(attribute.Int("db.response.returned_rows", len(docs)))
	return docs, nil
}

// toBSON translates a Filter into a query document with deterministic field
// order. Several values for one field become an $in condition.
func toBSON(f inventory.Filter) bson.D {
	q := bson.D{}
	for _, field := range f.Fields() {
		values := f[field]
		switch len(values) {
		case 0:
			continue
		case 1:
			q = append(q, bson.E{Key: field, Value: values[0]})
		default:
			q = append(q, bson.E{Key: field, Value: bson.D{{Key: "$in", Value: bson.A(values)}}})
		}
	}
	return q
}
