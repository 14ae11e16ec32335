package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_PreservesKeyOrder(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"zeta": 1, "alpha": {"b": 2, "a": 3}, "mid": [1, "x", null, true]}`))
	require.NoError(t, err)

	rec, ok := v.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, rec.Keys())

	alpha, _ := rec.Get("alpha")
	nested, ok := alpha.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, nested.Keys())

	mid, _ := rec.Get("mid")
	items, ok := mid.AsArray()
	require.True(t, ok)
	require.Len(t, items, 4)
	assert.Equal(t, KindNumber, items[0].Kind())
	assert.Equal(t, KindString, items[1].Kind())
	assert.True(t, items[2].IsNull())
	assert.Equal(t, KindBool, items[3].Kind())
}

func TestDecodeJSON_Errors(t *testing.T) {
	for _, in := range []string{``, `{`, `{"a":1} {"b":2}`, `[1,]`} {
		_, err := DecodeJSON([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	in := `{"inv_id":"INV-1","total":1050.5,"paid":false,"note":null,"lines":[{"qty":5}]}`

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(in), &rec))

	out, err := json.Marshal(&rec)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
	assert.Equal(t, in, string(out), "key order must survive a round trip")
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`[1,2]`), &rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a JSON object")
}

func TestRecord_SetKeepsFirstPosition(t *testing.T) {
	r := NewRecord()
	r.Set("a", Number(1))
	r.Set("b", Number(2))
	r.Set("a", Number(3))

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, ok := r.Get("a")
	require.True(t, ok)
	n, _ := v.AsNumber()
	assert.Equal(t, 3.0, n)
}

func TestRecordOf(t *testing.T) {
	r := RecordOf("qty", 5, "sku", "A1", "lines", []*Record{RecordOf("qty", 1)}, "gone", nil)

	assert.Equal(t, 4, r.Len())
	lines, _ := r.Get("lines")
	items, ok := lines.AsArray()
	require.True(t, ok)
	require.Len(t, items, 1)
	gone, ok := r.Get("gone")
	assert.True(t, ok)
	assert.True(t, gone.IsNull())

	assert.Panics(t, func() { RecordOf("odd") })
}

func TestValue_Scalar(t *testing.T) {
	tests := []struct {
		v    Value
		want string
		ok   bool
	}{
		{String("AED"), "AED", true},
		{Number(5), "5", true},
		{Number(1050.25), "1050.25", true},
		{Bool(true), "true", true},
		{Null(), "", false},
		{ObjectValue(NewRecord()), "", false},
		{Array(), "", false},
	}
	for _, tt := range tests {
		got, ok := tt.v.Scalar()
		assert.Equal(t, tt.ok, ok, tt.v.Kind().String())
		assert.Equal(t, tt.want, got)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"100", 100, true},
		{"  3.5", 3.5, true},
		{"-0.25", -0.25, true},
		{".5", 0.5, true},
		{"1e3", 1000, true},
		{"1e", 1, true},
		{"12.5 AED", 12.5, true},
		{"1,000", 1, true},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	inf, ok := ParseNumber("Infinity")
	assert.True(t, ok)
	assert.True(t, math.IsInf(inf, 1))
}

func TestNewIDs(t *testing.T) {
	u := NewUploadID()
	r := NewReportID()
	assert.Regexp(t, `^u_[0-9a-f]{8}$`, u)
	assert.Regexp(t, `^r_[0-9a-f]{8}$`, r)
	assert.NotEqual(t, NewReportID(), r)
}
