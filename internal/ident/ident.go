// Package ident normalizes document identifiers.
//
// Identifiers coming out of the document store (or out of its JSON rendering)
// arrive either as a bare scalar ("l1", 42, an ObjectID) or wrapped in an
// object that carries the scalar under WrapKey ({"$oid": "l1"}). Every
// identity comparison in the repository goes through Normalize so that both
// shapes produce the same key.
package ident

import (
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WrapKey is the property name under which wrapped identifiers carry their
// scalar value.
const WrapKey = "$oid"

// undefined is what a missing value stringifies to in JavaScript clients.
// Such a key never denotes an identity.
const undefined = "undefined"

// Normalize returns the canonical string form of a raw identifier.
//
// The boolean is false when v carries no identity: nil, an empty string, the
// literal "undefined", the zero ObjectID, a wrapper without WrapKey, or a value
// of an unsupported type. Callers must treat that as a join failure.
func Normalize(v any) (string, bool) {
	switch w := v.(type) {
	case bson.D:
		for _, e := range w {
			if e.Key == WrapKey {
				return scalar(e.Value)
			}
		}
		return "", false
	case bson.M:
		inner, ok := w[WrapKey]
		if !ok {
			return "", false
		}
		return scalar(inner)
	case map[string]any:
		inner, ok := w[WrapKey]
		if !ok {
			return "", false
		}
		return scalar(inner)
	default:
		return scalar(v)
	}
}

// Equal reports whether a and b normalize to the same identity. Two values
// without identity are never equal.
func Equal(a, b any) bool {
	ka, ok := Normalize(a)
	if !ok {
		return false
	}
	kb, ok := Normalize(b)
	return ok && ka == kb
}

// Wrap returns the wrapped representation of v.
func Wrap(v any) bson.D {
	return bson.D{{Key: WrapKey, Value: v}}
}

func scalar(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s = x
	case primitive.ObjectID:
		if x.IsZero() {
			return "", false
		}
		s = x.Hex()
	case primitive.Decimal128:
		s = x.String()
	case int:
		s = strconv.Itoa(x)
	case int8:
		s = strconv.FormatInt(int64(x), 10)
	case int16:
		s = strconv.FormatInt(int64(x), 10)
	case int32:
		s = strconv.FormatInt(int64(x), 10)
	case int64:
		s = strconv.FormatInt(x, 10)
	case uint:
		s = strconv.FormatUint(uint64(x), 10)
	case uint8:
		s = strconv.FormatUint(uint64(x), 10)
	case uint16:
		s = strconv.FormatUint(uint64(x), 10)
	case uint32:
		s = strconv.FormatUint(uint64(x), 10)
	case uint64:
		s = strconv.FormatUint(x, 10)
	case float32:
		s = formatFloat(float64(x), 32)
	case float64:
		s = formatFloat(x, 64)
	default:
		return "", false
	}
	if s == "" || s == undefined {
		return "", false
	}
	return s, true
}

// formatFloat renders numbers the way JavaScript's Number#toString does, so
// 5.0 and 5 share a key: plain notation for magnitudes in [1e-7, 1e21),
// exponent notation ("1e+21", "1.5e-8") outside it.
func formatFloat(f float64, bitSize int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-7 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}
	s := strconv.FormatFloat(f, 'e', -1, bitSize)
	// Go pads the exponent to two digits.
	mantissa, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}
