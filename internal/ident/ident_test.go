package ident

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalize(t *testing.T) {
	oid := primitive.NewObjectID()

	tests := []struct {
		name   string
		in     any
		want   string
		wantOK bool
	}{
		{name: "string", in: "l1", want: "l1", wantOK: true},
		{name: "object id", in: oid, want: oid.Hex(), wantOK: true},
		{name: "int64", in: int64(42), want: "42", wantOK: true},
		{name: "int32", in: int32(7), want: "7", wantOK: true},
		{name: "whole float", in: 5.0, want: "5", wantOK: true},
		{name: "fractional float", in: 1.25, want: "1.25", wantOK: true},
		{name: "negative zero", in: math.Copysign(0, -1), want: "0", wantOK: true},
		{name: "large float keeps plain notation", in: 1.2345678901234568e20, want: "123456789012345680000", wantOK: true},
		{name: "float at exponent threshold", in: 1e21, want: "1e+21", wantOK: true},
		{name: "small float keeps plain notation", in: 1e-7, want: "0.0000001", wantOK: true},
		{name: "tiny float", in: 1.5e-8, want: "1.5e-8", wantOK: true},
		{name: "float32", in: float32(2.5), want: "2.5", wantOK: true},
		{name: "int8", in: int8(-3), want: "-3", wantOK: true},
		{name: "int16", in: int16(300), want: "300", wantOK: true},
		{name: "uint", in: uint(9), want: "9", wantOK: true},
		{name: "uint8", in: uint8(255), want: "255", wantOK: true},
		{name: "uint16", in: uint16(65535), want: "65535", wantOK: true},
		{name: "wrapped string in bson.D", in: bson.D{{Key: "$oid", Value: "l1"}}, want: "l1", wantOK: true},
		{name: "wrapped object id in bson.M", in: bson.M{"$oid": oid}, want: oid.Hex(), wantOK: true},
		{name: "wrapped hex in map", in: map[string]any{"$oid": oid.Hex()}, want: oid.Hex(), wantOK: true},
		{name: "nil", in: nil},
		{name: "empty string", in: ""},
		{name: "undefined literal", in: "undefined"},
		{name: "zero object id", in: primitive.NilObjectID},
		{name: "wrapper without key", in: bson.D{{Key: "id", Value: "l1"}}},
		{name: "wrapped nil", in: bson.M{"$oid": nil}},
		{name: "wrapped undefined", in: map[string]any{"$oid": "undefined"}},
		{name: "nested wrapper", in: bson.D{{Key: "$oid", Value: bson.D{{Key: "$oid", Value: "l1"}}}}},
		{name: "bool", in: true},
		{name: "NaN", in: math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_WrapEquivalence(t *testing.T) {
	values := []any{"p1", "64b7f0c2a1e4c3d2b1a09f88", primitive.NewObjectID(), int64(12), 3.5}
	for _, v := range values {
		bare, ok := Normalize(v)
		assert.True(t, ok, "%v", v)

		wrapped, ok := Normalize(Wrap(v))
		assert.True(t, ok, "%v", v)
		assert.Equal(t, bare, wrapped)
	}
}

func TestNormalize_ObjectIDMatchesHexString(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.True(t, Equal(oid, oid.Hex()))
	assert.True(t, Equal(Wrap(oid.Hex()), oid))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("l1", Wrap("l1")))
	assert.False(t, Equal("l1", "l2"))
	assert.False(t, Equal(nil, nil))
	assert.False(t, Equal("undefined", "undefined"))
}
