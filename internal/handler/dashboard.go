package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/shelfsafe/internal/dashboard"
)

// Dashboard runs an aggregation cycle and returns products and lots with
// their resolved images.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		message := "failed to build dashboard"
		var fetchErr *dashboard.FetchError
		switch {
		case errors.As(err, &fetchErr):
			message = "failed to fetch " + fetchErr.Collection
		case errors.Is(err, dashboard.ErrUnavailable):
			message = "database unreachable"
		}
		writeError(w, r, http.StatusServiceUnavailable, message, err)
		return
	}

	var e jx.Encoder
	encodeSnapshot(&e, snap)
	writeJSON(w, http.StatusOK, e.Bytes())
}

func encodeSnapshot(e *jx.Encoder, snap *dashboard.Snapshot) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("fetchedAt", func(e *jx.Encoder) { e.Str(snap.FetchedAt.UTC().Format(time.RFC3339)) })
		e.Field("counts", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("products", func(e *jx.Encoder) { e.Int(len(snap.Products)) })
				e.Field("lots", func(e *jx.Encoder) { e.Int(len(snap.Lots)) })
				e.Field("attachments", func(e *jx.Encoder) { e.Int(snap.AttachmentCount) })
			})
		})
		e.Field("totalQtyOnHand", func(e *jx.Encoder) { e.Raw([]byte(snap.TotalQtyOnHand.String())) })
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, p := range snap.Products {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { optStr(e, p.Key) })
						e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
						e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
						e.Field("barcodeUpc", func(e *jx.Encoder) { e.Str(p.Barcode) })
						e.Field("imageUrl", func(e *jx.Encoder) { optStr(e, p.ImageURL) })
					})
				}
			})
		})
		e.Field("lots", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range snap.Lots {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { optStr(e, l.Key) })
						e.Field("productId", func(e *jx.Encoder) { optStr(e, l.ProductKey) })
						e.Field("productName", func(e *jx.Encoder) { e.Str(l.ProductName) })
						e.Field("qtyOnHand", func(e *jx.Encoder) { e.Raw([]byte(l.QtyOnHand.String())) })
						e.Field("expiryDate", func(e *jx.Encoder) {
							if l.ExpiryDate == nil {
								e.Null()
								return
							}
							e.Str(l.ExpiryDate.Format(time.RFC3339))
						})
						e.Field("status", func(e *jx.Encoder) { e.Str(l.Status) })
						e.Field("imageUrl", func(e *jx.Encoder) { optStr(e, l.ImageURL) })
					})
				}
			})
		})
	})
}

// optStr writes s, or null when s is empty.
func optStr(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()
		return
	}
	e.Str(s)
}
