package inventory

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuantityField is the canonical quantity field of a lot document. Older
// documents used "quantityOnHand"; those are renamed by the seed tool's
// migration and are not read here.
const QuantityField = "qtyOnHand"

// Lot is an inventory lot of a single product.
type Lot struct {
	ID          any
	ProductID   any
	ProductName string
	QtyOnHand   decimal.Decimal
	ExpiryDate  *time.Time
	Status      string
}

// DecodeLot maps a lot document onto Lot. Missing, malformed and negative
// quantities decode to zero; an unparseable expiry date decodes to nil.
func DecodeLot(doc bson.D) Lot {
	productID, _ := Lookup(doc, "productId")
	qty, _ := Lookup(doc, QuantityField)
	expiry, _ := Lookup(doc, "expiryDate")

	return Lot{
		ID:          identity(doc),
		ProductID:   productID,
		ProductName: lookupString(doc, "productName"),
		QtyOnHand:   parseQuantity(qty),
		ExpiryDate:  parseDate(expiry),
		Status:      lookupString(doc, "status"),
	}
}

// DecodeLots maps every document in docs, preserving order.
func DecodeLots(docs []bson.D) []Lot {
	out := make([]Lot, len(docs))
	for i, d := range docs {
		out[i] = DecodeLot(d)
	}
	return out
}

// TotalQtyOnHand sums the quantity of every lot.
func TotalQtyOnHand(lots []Lot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(l.QtyOnHand)
	}
	return total
}

func parseQuantity(v any) decimal.Decimal {
	var d decimal.Decimal
	switch x := v.(type) {
	case int:
		d = decimal.NewFromInt(int64(x))
	case int32:
		d = decimal.NewFromInt32(x)
	case int64:
		d = decimal.NewFromInt(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(x)
	case primitive.Decimal128:
		parsed, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	case string:
		parsed, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	case bson.D:
		// Extended JSON wrappers as read back from the API.
		for _, key := range []string{"$numberDecimal", "$numberLong", "$numberDouble", "$numberInt"} {
			if inner, ok := Lookup(x, key); ok {
				return parseQuantity(inner)
			}
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// parseDate accepts BSON dates, RFC 3339 or plain date strings, and the
// Extended JSON {"$date": ...} wrapper in its relaxed and canonical forms.
func parseDate(v any) *time.Time {
	var t time.Time
	switch x := v.(type) {
	case primitive.DateTime:
		t = x.Time()
	case time.Time:
		t = x
	case string:
		parsed, ok := parseDateString(x)
		if !ok {
			return nil
		}
		t = parsed
	case int64:
		t = time.UnixMilli(x)
	case float64:
		t = time.UnixMilli(int64(x))
	case bson.D:
		inner, ok := Lookup(x, "$date")
		if !ok {
			if n, ok := Lookup(x, "$numberLong"); ok {
				return parseNumberLong(n)
			}
			return nil
		}
		return parseDate(inner)
	case bson.M:
		if inner, ok := x["$date"]; ok {
			return parseDate(inner)
		}
		if n, ok := x["$numberLong"]; ok {
			return parseNumberLong(n)
		}
		return nil
	default:
		return nil
	}
	t = t.UTC()
	return &t
}

func parseNumberLong(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func parseDateString(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
