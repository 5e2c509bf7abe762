// Package handler serves the read-only dashboard API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shelfsafe/internal/dashboard"
	"github.com/xenking/shelfsafe/internal/domain/inventory"
)

// Snapshotter runs one aggregation cycle.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*dashboard.Snapshot, error)
}

// Handler serves the collection listings, the health check and the resolved
// dashboard view. Listings are passed through from the repository unchanged.
type Handler struct {
	repo      inventory.Repository
	snapshots Snapshotter
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(repo inventory.Repository, snapshots Snapshotter) *Handler {
	return &Handler{
		repo:      repo,
		snapshots: snapshots,
	}
}

// RegisterRoutes mounts the API routes under /api.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/products", h.ListProducts)
		r.Get("/inventoryLots", h.ListInventoryLots)
		r.Get("/attachments", h.ListAttachments)
		r.Get("/dashboard", h.Dashboard)
	})
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already sent; a failed write means the client went away.
	_, _ = w.Write(body)
}

// writeError logs err and answers with a {code, message} body.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	zctx.From(r.Context()).Warn("Request failed",
		zap.String("message", message),
		zap.Int("status", status),
		zap.Error(err),
	)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
	writeJSON(w, status, e.Bytes())
}
