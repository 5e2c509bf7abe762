// Command seed-db loads fixture documents into MongoDB and runs one-off data
// migrations.
package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/shelfsafe/db"
	"github.com/xenking/shelfsafe/internal/domain/inventory"
	"github.com/xenking/shelfsafe/internal/storage/mongodb"
)

type options struct {
	mongoURI        string
	database        string
	fixtures        string
	drop            bool
	migrateQuantity bool
	skipIndexes     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB connection string (or SHELFSAFE_MONGO_URI, MONGODB_URI)")
	flag.StringVar(&opts.database, "database", "shelfsafe", "database name")
	flag.StringVar(&opts.fixtures, "fixtures", "", "directory of <collection>.json[.gz] fixtures; embedded defaults when empty")
	flag.BoolVar(&opts.drop, "drop", false, "drop collections before inserting")
	flag.BoolVar(&opts.migrateQuantity, "migrate-quantity", false, "rename legacy quantityOnHand to qtyOnHand in inventory lots")
	flag.BoolVar(&opts.skipIndexes, "skip-indexes", false, "do not create indexes")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	for _, env := range []string{"SHELFSAFE_MONGO_URI", "MONGODB_URI"} {
		if opts.mongoURI == "" {
			opts.mongoURI = os.Getenv(env)
		}
	}
	if opts.mongoURI == "" {
		lg.Fatal("Mongo URI is required: set --mongo-uri, SHELFSAFE_MONGO_URI or MONGODB_URI")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	fsys := fixtureFS(opts.fixtures)

	lg.Info("Connecting", zap.String("database", opts.database))
	store, err := mongodb.Connect(ctx, mongodb.Options{
		URI:      opts.mongoURI,
		Database: opts.database,
		Timeout:  30 * time.Second,
	})
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer func() { _ = store.Close(context.Background()) }()

	if err := store.Ping(ctx); err != nil {
		return err
	}

	for _, name := range []string{
		inventory.ProductsCollection,
		inventory.LotsCollection,
		inventory.AttachmentsCollection,
	} {
		if err := seedCollection(ctx, lg, store, fsys, name, opts.drop); err != nil {
			return err
		}
	}

	if opts.migrateQuantity {
		n, err := store.MigrateQuantityField(ctx)
		if err != nil {
			return errors.Wrap(err, "migrate quantity field")
		}
		lg.Info("Migrated lot quantities", zap.Int64("modified", n))
	}

	if !opts.skipIndexes {
		if err := store.EnsureIndexes(ctx); err != nil {
			return errors.Wrap(err, "ensure indexes")
		}
		lg.Info("Indexes ensured")
	}
	return nil
}

func seedCollection(ctx context.Context, lg *zap.Logger, store *mongodb.Store, fsys fs.FS, name string, drop bool) error {
	lg = lg.With(zap.String("collection", name))

	docs, ok, err := db.ReadFixture(fsys, name)
	if err != nil {
		return err
	}
	if !ok {
		lg.Info("No fixture, skipping")
		return nil
	}

	if drop {
		if err := store.Drop(ctx, name); err != nil {
			return err
		}
		lg.Info("Dropped")
	}

	n, err := store.InsertMany(ctx, name, docs)
	if err != nil {
		return err
	}
	lg.Info("Inserted", zap.Int("count", n))
	return nil
}

func fixtureFS(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return db.Fixtures()
}
