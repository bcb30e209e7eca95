package objutil_test

import (
	"math"
	"testing"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/objutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepCloneIsIndependent(t *testing.T) {
	orig := domain.Document{
		"name": "Anna",
		"tags": []interface{}{"a", "b"},
		"nested": domain.Document{
			"when": time.Now(),
		},
	}

	clone := objutil.CloneDocument(orig)
	assert.True(t, objutil.DeepEqual(orig, clone))

	clone["name"] = "changed"
	clone["tags"].([]interface{})[0] = "z"
	assert.Equal(t, "Anna", orig["name"])
	assert.Equal(t, "a", orig["tags"].([]interface{})[0])
}

func TestDeepEqualArraysOrderSensitive(t *testing.T) {
	a := []interface{}{"a", "b"}
	b := []interface{}{"b", "a"}
	assert.False(t, objutil.DeepEqual(a, b))
}

func TestDeepEqualObjectsOrderInsensitive(t *testing.T) {
	a := domain.Document{"x": 1.0, "y": 2.0}
	b := domain.Document{"y": 2.0, "x": 1.0}
	assert.True(t, objutil.DeepEqual(a, b))
}

func TestDeepEqualNaNNeverEqual(t *testing.T) {
	assert.False(t, objutil.DeepEqual(math.NaN(), math.NaN()))
}

func TestDeepEqualDatesByInstant(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.In(time.FixedZone("X", 3600))
	assert.True(t, objutil.DeepEqual(t1, t2))
}

func TestRoundTripPreservesDates(t *testing.T) {
	doc := domain.Document{
		"_id":     "abc",
		"created": time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		"nested": domain.Document{
			"updated": time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	data, err := objutil.Marshal(doc)
	require.NoError(t, err)

	decoded, err := objutil.UnmarshalDocument(data)
	require.NoError(t, err)

	assert.True(t, objutil.DeepEqual(doc, decoded))
}

func TestRoundTripCollectionMetadata(t *testing.T) {
	meta := &domain.CollectionMetadata{
		Name:              "users",
		FileHandle:        "handle-1",
		Created:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		LastUpdated:       time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		DocumentCount:     3,
		ModificationToken: "tok-1",
	}

	data, err := objutil.Marshal(meta)
	require.NoError(t, err)

	decoded, err := objutil.Unmarshal(data)
	require.NoError(t, err)

	got, ok := decoded.(*domain.CollectionMetadata)
	require.True(t, ok, "expected *domain.CollectionMetadata, got %T", decoded)
	assert.Equal(t, meta.Name, got.Name)
	assert.Equal(t, meta.FileHandle, got.FileHandle)
	assert.True(t, meta.Created.Equal(got.Created))
	assert.True(t, meta.LastUpdated.Equal(got.LastUpdated))
	assert.Equal(t, meta.DocumentCount, got.DocumentCount)
	assert.Equal(t, meta.ModificationToken, got.ModificationToken)
}

func TestHasInvalidNumber(t *testing.T) {
	assert.True(t, objutil.HasInvalidNumber(math.NaN()))
	assert.True(t, objutil.HasInvalidNumber(math.Inf(1)))
	assert.True(t, objutil.HasInvalidNumber(domain.Document{"x": []interface{}{math.NaN()}}))
	assert.False(t, objutil.HasInvalidNumber(domain.Document{"x": 1.0}))
}
