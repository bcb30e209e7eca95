package fieldpath_test

import (
	"testing"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/fieldpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDottedPath(t *testing.T) {
	doc := domain.Document{"name": domain.Document{"first": "Anna"}}
	v := fieldpath.Get(doc, "name.first")
	assert.Equal(t, "Anna", v)
}

func TestGetMissingIsDistinctFromNull(t *testing.T) {
	doc := domain.Document{"name": nil}
	assert.False(t, fieldpath.IsMissing(fieldpath.Get(doc, "name")))
	assert.Nil(t, fieldpath.Get(doc, "name"))
	assert.True(t, fieldpath.IsMissing(fieldpath.Get(doc, "missing")))
}

func TestGetArrayIndex(t *testing.T) {
	doc := domain.Document{"items": []interface{}{"a", "b", "c"}}
	assert.Equal(t, "b", fieldpath.Get(doc, "items.1"))
	assert.True(t, fieldpath.IsMissing(fieldpath.Get(doc, "items.9")))
}

func TestGetExistentialArrayTraversal(t *testing.T) {
	doc := domain.Document{"items": []interface{}{
		domain.Document{"tag": "red"},
		domain.Document{"tag": "blue"},
	}}
	v := fieldpath.Get(doc, "items.tag")
	vals := fieldpath.Values(v)
	assert.ElementsMatch(t, []interface{}{"red", "blue"}, vals)
}

func TestSetCreatesIntermediateObjects(t *testing.T) {
	doc := domain.Document{}
	err := fieldpath.Set(doc, "a.b.c", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, fieldpath.Get(doc, "a.b.c"))
}

func TestSetArrayIndexNoPadding(t *testing.T) {
	doc := domain.Document{"items": []interface{}{"a", "b"}}
	err := fieldpath.Set(doc, "items.5", "x")
	require.Error(t, err)
}

func TestSetArrayIndexInRange(t *testing.T) {
	doc := domain.Document{"items": []interface{}{"a", "b"}}
	err := fieldpath.Set(doc, "items.1", "z")
	require.NoError(t, err)
	assert.Equal(t, "z", fieldpath.Get(doc, "items.1"))
}

func TestDeleteLeavesMissing(t *testing.T) {
	doc := domain.Document{"a": domain.Document{"b": 1}}
	fieldpath.Delete(doc, "a.b")
	assert.True(t, fieldpath.IsMissing(fieldpath.Get(doc, "a.b")))
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	doc := domain.Document{"a": 1}
	fieldpath.Delete(doc, "x.y.z")
	assert.Equal(t, 1, doc["a"])
}

func TestExistsTreatsNullAsPresent(t *testing.T) {
	doc := domain.Document{"a": nil}
	assert.True(t, fieldpath.Exists(doc, "a"))
	assert.False(t, fieldpath.Exists(doc, "b"))
}
