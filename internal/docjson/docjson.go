// Package docjson converts document arrays to and from their JSON wire form.
//
// Documents are written as relaxed Extended JSON so that store-specific types
// survive the trip (ObjectIDs become {"$oid": hex}, dates {"$date": ...}).
// Reading is deliberately tolerant: wrappers are kept as plain objects and
// left to the identifier normalizer, since clients may wrap values that are
// not valid ObjectIDs.
package docjson

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.mongodb.org/mongo-driver/bson"
)

// EncodeArray renders docs as a JSON array, keeping each document's field
// order.
func EncodeArray(docs []bson.D) ([]byte, error) {
	var w jx.Writer
	w.ArrStart()
	for i, doc := range docs {
		b, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal document %d", i)
		}
		if i > 0 {
			w.Comma()
		}
		w.Raw(b)
	}
	w.ArrEnd()
	return w.Buf, nil
}

// DecodeArray parses a JSON array of objects. Objects become bson.D, arrays
// bson.A, integral numbers int64 and other numbers float64.
func DecodeArray(data []byte) ([]bson.D, error) {
	docs := []bson.D{}
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return errors.Errorf("expected object, got %s", d.Next())
		}
		v, err := decodeValue(d)
		if err != nil {
			return err
		}
		docs = append(docs, v.(bson.D))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode document array")
	}
	return docs, nil
}

// SplitArray calls fn with the raw bytes of every element of a JSON array.
func SplitArray(data []byte, fn func(raw []byte) error) error {
	return jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		return fn(raw)
	})
}

func decodeValue(d *jx.Decoder) (any, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, err
		}
		return s, nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		if n.IsInt() {
			if v, err := n.Int64(); err == nil {
				return v, nil
			}
		}
		f, err := n.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case jx.Bool:
		b, err := d.Bool()
		if err != nil {
			return nil, err
		}
		return b, nil
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
		arr := bson.A{}
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeValue(d)
			if err != nil {
				return err
			}
			arr = append(arr, v)
			return nil
		})
		return arr, err
	case jx.Object:
		doc := bson.D{}
		err := d.Obj(func(d *jx.Decoder, key string) error {
			v, err := decodeValue(d)
			if err != nil {
				return err
			}
			doc = append(doc, bson.E{Key: key, Value: v})
			return nil
		})
		return doc, err
	default:
		return nil, errors.Errorf("unexpected %s", tt)
	}
}
