//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/shelfsafe/internal/client"
	"github.com/xenking/shelfsafe/internal/dashboard"
	"github.com/xenking/shelfsafe/internal/domain/inventory"
)

const (
	oatMilkProduct = "6650a1f0c2e4b7a1d0f10001"
	oatMilkLot     = "6650a2b8c2e4b7a1d0f20001"
	sourdoughLot   = "6650a2b8c2e4b7a1d0f20003"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]map[string]any](t, resp)
	if len(products) != 5 {
		t.Fatalf("expected 5 products, got %d", len(products))
	}

	// ObjectIDs come back as Extended JSON wrappers.
	var found bool
	for _, p := range products {
		id, ok := p["_id"].(map[string]any)
		if ok && id["$oid"] == oatMilkProduct {
			found = true
		}
	}
	if !found {
		t.Fatalf("product %s not found as {$oid} wrapper", oatMilkProduct)
	}
}

func TestListInventoryLots_Migrated(t *testing.T) {
	resp := doGet(t, "/api/inventoryLots")
	defer resp.Body.Close()

	lots := decodeJSON[[]map[string]any](t, resp)
	if len(lots) != 6 {
		t.Fatalf("expected 6 lots, got %d", len(lots))
	}
	for _, l := range lots {
		if _, legacy := l["quantityOnHand"]; legacy {
			t.Fatalf("lot %v still carries the legacy quantity field", l["_id"])
		}
	}
}

func TestListAttachments_Filters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "all live", query: "", want: 6},
		{name: "by type", query: "?entityType=inventoryLots", want: 5},
		// Stored once as a hex string and once (deleted) as an ObjectID.
		{name: "by hex id", query: "?entityType=inventoryLots&entityId=" + sourdoughLot, want: 1},
		// Stored as an ObjectID only.
		{name: "by object id", query: "?entityId=6650a2b8c2e4b7a1d0f20002", want: 1},
		{name: "by string id", query: "?entityId=lot-olive-oil-a", want: 1},
		{name: "unknown", query: "?entityId=missing", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doGet(t, "/api/attachments"+tt.query)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			got := decodeJSON[[]map[string]any](t, resp)
			if len(got) != tt.want {
				t.Fatalf("expected %d attachments, got %d", tt.want, len(got))
			}
			for _, a := range got {
				if a["isDeleted"] == true {
					t.Fatalf("deleted attachment returned: %v", a)
				}
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	resp := doGet(t, "/api/dashboard")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON[dashboardResponse](t, resp)

	if body.Counts.Products != 5 || body.Counts.Lots != 6 || body.Counts.Attachments != 5 {
		t.Fatalf("unexpected counts: %+v", body.Counts)
	}
	// 24 + 6 + 12 + 18.5 + 40 (migrated) + 0
	if body.TotalQtyOnHand.String() != "100.5" {
		t.Fatalf("total qty: got %s, want 100.5", body.TotalQtyOnHand)
	}

	images := map[string]string{}
	for _, p := range body.Products {
		if p.ImageURL != nil {
			images[p.ID] = *p.ImageURL
		}
	}
	if got := images[oatMilkProduct]; got != "https://images.example.com/lots/oat-milk-front.jpg" {
		t.Fatalf("oat milk image: got %q", got)
	}
	if got, ok := images["6650a1f0c2e4b7a1d0f10005"]; ok {
		t.Fatalf("spinach has no lot image, got %q", got)
	}

	for _, l := range body.Lots {
		if l.ID == sourdoughLot {
			if l.ImageURL == nil || *l.ImageURL != "https://images.example.com/lots/sourdough.jpg" {
				t.Fatalf("sourdough lot image: got %v", l.ImageURL)
			}
		}
	}
}

func TestClient_Snapshot(t *testing.T) {
	c, err := client.New(baseURL)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	svc, err := dashboard.NewService(c, dashboard.Config{EntityType: inventory.LotsCollection}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Products) != 5 || len(snap.Lots) != 6 {
		t.Fatalf("unexpected snapshot sizes: %d products, %d lots", len(snap.Products), len(snap.Lots))
	}
	for _, l := range snap.Lots {
		if l.Key == oatMilkLot && l.ImageURL != "https://images.example.com/lots/oat-milk-front.jpg" {
			t.Fatalf("oat milk lot image over the wire: got %q", l.ImageURL)
		}
	}
	if snap.TotalQtyOnHand.String() != "100.5" {
		t.Fatalf("total qty over the wire: got %s", snap.TotalQtyOnHand)
	}
}
