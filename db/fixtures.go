package db

import (
	"bytes"
	"io"
	"io/fs"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/xenking/shelfsafe/internal/docjson"
)

// Fixtures returns the embedded seed directory.
func Fixtures() fs.FS {
	sub, err := fs.Sub(Seed, "seed")
	if err != nil {
		panic(err)
	}
	return sub
}

// ReadFixture reads <name>.json.gz or <name>.json from fsys. A missing
// fixture yields ok=false.
func ReadFixture(fsys fs.FS, name string) (docs []bson.D, ok bool, err error) {
	data, err := fs.ReadFile(fsys, name+".json.gz")
	switch {
	case err == nil:
		if data, err = gunzip(data); err != nil {
			return nil, false, errors.Wrapf(err, "gunzip %s", name)
		}
	case errors.Is(err, fs.ErrNotExist):
		data, err = fs.ReadFile(fsys, name+".json")
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, errors.Wrapf(err, "read %s", name)
		}
	default:
		return nil, false, errors.Wrapf(err, "read %s", name)
	}

	docs, err = ParseFixture(data)
	if err != nil {
		return nil, false, errors.Wrapf(err, "parse %s", name)
	}
	return docs, true, nil
}

// ParseFixture decodes an Extended JSON array. Each element goes through the
// driver's parser so $oid, $date and $numberDecimal become native BSON types.
func ParseFixture(data []byte) ([]bson.D, error) {
	docs := []bson.D{}
	i := 0
	err := docjson.SplitArray(data, func(raw []byte) error {
		var doc bson.D
		if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
		docs = append(docs, doc)
		i++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := pgzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}
