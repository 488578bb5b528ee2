package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestDecodeInto(t *testing.T) {
	var rec testRecord
	require.NoError(t, decodeInto(strings.NewReader(`{"id":7,"name":"alpha"}`), &rec))
	assert.Equal(t, 7, rec.ID)
	assert.Equal(t, "alpha", rec.Name)
}

func TestDecodeInto_Malformed(t *testing.T) {
	var rec testRecord
	err := decodeInto(strings.NewReader(`{"id":`), &rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json: decode object")
}

func TestDecodeInto_NilTarget(t *testing.T) {
	assert.NoError(t, decodeInto(strings.NewReader(`not json at all`), nil))
}
