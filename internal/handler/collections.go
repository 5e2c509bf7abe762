package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/xenking/shelfsafe/internal/docjson"
	"github.com/xenking/shelfsafe/internal/domain/inventory"
)

const healthyMessage = "API is healthy + DB connected"

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ok, message, status := true, healthyMessage, http.StatusOK
	err := h.repo.Ping(r.Context())
	if err != nil {
		ok, message, status = false, "database unreachable", http.StatusServiceUnavailable
		zctx.From(r.Context()).Warn("Health check failed", zap.Error(err))
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("ok", func(e *jx.Encoder) { e.Bool(ok) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
	writeJSON(w, status, e.Bytes())
}

// ListProducts returns every product document.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "failed to fetch products", h.repo.Products)
}

// ListInventoryLots returns every inventory lot document.
func (h *Handler) ListInventoryLots(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "failed to fetch inventory lots", h.repo.InventoryLots)
}

// ListAttachments returns live attachments, optionally narrowed by the
// entityType and entityId query parameters.
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	q := inventory.AttachmentQuery{
		EntityType: r.URL.Query().Get("entityType"),
		EntityID:   r.URL.Query().Get("entityId"),
	}
	h.list(w, r, "failed to fetch attachments", func(ctx context.Context) ([]bson.D, error) {
		return h.repo.Attachments(ctx, q)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, failure string, fetch func(context.Context) ([]bson.D, error)) {
	docs, err := fetch(r.Context())
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, failure, err)
		return
	}
	body, err := docjson.EncodeArray(docs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to encode documents", err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}
