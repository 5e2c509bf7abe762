// Package dashboard runs aggregation cycles: fetch products, lots and
// attachments together, then resolve images for the rendering layer.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shelfsafe/internal/domain/inventory"
	"github.com/xenking/shelfsafe/internal/ident"
	"github.com/xenking/shelfsafe/internal/resolve"
)

// ErrUnavailable marks a failed health check at the start of a cycle.
var ErrUnavailable = errors.New("store unavailable")

// FetchError reports which collection failed during a cycle.
type FetchError struct {
	Collection string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ProductView is a product with its normalized id and resolved image.
// ImageURL is empty when the product has no image.
type ProductView struct {
	inventory.Product
	Key      string
	ImageURL string
}

// LotView is a lot with its normalized ids and its own image.
type LotView struct {
	inventory.Lot
	Key        string
	ProductKey string
	ImageURL   string
}

// Snapshot is the outcome of one aggregation cycle.
type Snapshot struct {
	Products        []ProductView
	Lots            []LotView
	AttachmentCount int
	TotalQtyOnHand  decimal.Decimal
	FetchedAt       time.Time
}

// Config configures a Service.
type Config struct {
	// EntityType restricts the attachment fetch. Empty fetches every live
	// attachment; resolution is correct either way.
	EntityType string
	// SkipPing disables the health check that opens every cycle.
	SkipPing bool
}

// Service runs aggregation cycles against a Repository.
type Service struct {
	repo       inventory.Repository
	entityType string
	skipPing   bool
	now        func() time.Time

	cycles   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewService creates a Service. Metrics are recorded through mp.
func NewService(repo inventory.Repository, cfg Config, mp metric.MeterProvider) (*Service, error) {
	meter := mp.Meter("github.com/xenking/shelfsafe/internal/dashboard")

	cycles, err := meter.Int64Counter("dashboard.cycles",
		metric.WithDescription("Aggregation cycles by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cycles counter")
	}
	duration, err := meter.Float64Histogram("dashboard.cycle.duration",
		metric.WithDescription("Aggregation cycle duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "duration histogram")
	}

	return &Service{
		repo:       repo,
		entityType: cfg.EntityType,
		skipPing:   cfg.SkipPing,
		now:        time.Now,
		cycles:     cycles,
		duration:   duration,
	}, nil
}

// Snapshot runs one aggregation cycle. The three fetches run concurrently and
// resolution starts only after all of them succeeded; any failure fails the
// whole cycle.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	start := s.now()
	snap, err := s.snapshot(ctx)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	s.cycles.Add(ctx, 1, attrs)
	s.duration.Record(ctx, s.now().Sub(start).Seconds(), attrs)

	if err != nil {
		return nil, err
	}
	zctx.From(ctx).Debug("Aggregation cycle completed",
		zap.Int("products", len(snap.Products)),
		zap.Int("lots", len(snap.Lots)),
		zap.Int("attachments", snap.AttachmentCount),
	)
	return snap, nil
}

func (s *Service) snapshot(ctx context.Context) (*Snapshot, error) {
	if !s.skipPing {
		if err := s.repo.Ping(ctx); err != nil {
			return nil, errors.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	var products, lots, attachments []bson.D
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = s.repo.Products(gctx)
		return wrapFetch(inventory.ProductsCollection, err)
	})
	g.Go(func() (err error) {
		lots, err = s.repo.InventoryLots(gctx)
		return wrapFetch(inventory.LotsCollection, err)
	})
	g.Go(func() (err error) {
		attachments, err = s.repo.Attachments(gctx, inventory.AttachmentQuery{EntityType: s.entityType})
		return wrapFetch(inventory.AttachmentsCollection, err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Build(
		inventory.DecodeProducts(products),
		inventory.DecodeLots(lots),
		inventory.DecodeAttachments(attachments),
		s.now(),
	), nil
}

// Build resolves images for already fetched records and assembles the
// snapshot. Records without identity are kept in the listing with an empty
// key and no image.
func Build(products []inventory.Product, lots []inventory.Lot, attachments []inventory.Attachment, at time.Time) *Snapshot {
	res := resolve.Resolve(lots, attachments)

	snap := &Snapshot{
		Products:        make([]ProductView, len(products)),
		Lots:            make([]LotView, len(lots)),
		AttachmentCount: len(attachments),
		TotalQtyOnHand:  inventory.TotalQtyOnHand(lots),
		FetchedAt:       at,
	}
	for i, p := range products {
		key, _ := ident.Normalize(p.ID)
		url, _ := res.ProductImages.Lookup(p.ID)
		snap.Products[i] = ProductView{Product: p, Key: key, ImageURL: url}
	}
	for i, l := range lots {
		key, _ := ident.Normalize(l.ID)
		productKey, _ := ident.Normalize(l.ProductID)
		url, _ := res.LotImages.Lookup(l.ID)
		snap.Lots[i] = LotView{Lot: l, Key: key, ProductKey: productKey, ImageURL: url}
	}
	return snap
}

func wrapFetch(collection string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Collection: collection, Err: err}
}
