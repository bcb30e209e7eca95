// Package update implements the update engine: applying a MongoDB-style
// update expression to a document and returning a freshly allocated
// result. The caller's document is never mutated.
package update

import (
	"sort"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/fieldpath"
	"github.com/adfharrison1/gasdb-go/pkg/objutil"
)

const idField = "_id"

// canonicalOrder is the fixed order operators are applied in. A plain
// Go map has no iteration order, so the order operators appear in the
// update expression is unobservable; this engine instead applies
// operators in a fixed, documented order (see DESIGN.md) so that
// Apply's result is deterministic for a given (document, update) pair.
var canonicalOrder = []string{"$set", "$unset", "$inc", "$mul", "$min", "$max", "$push", "$pull", "$addToSet"}

// Apply evaluates update against doc and returns a new document with
// every operator applied. doc is never mutated. If any operator fails,
// the returned error is non-nil and the caller's doc is left untouched
// (Apply never returns a partially-applied document).
func Apply(doc domain.Document, upd map[string]interface{}) (domain.Document, error) {
	if len(upd) == 0 {
		return nil, domain.NewError(domain.InvalidUpdate, "update expression must not be empty")
	}

	for key := range upd {
		if !domain.IsOperatorKey(key) {
			return nil, domain.NewError(domain.InvalidUpdate, "update expression must contain only operator keys, got field %q", key)
		}
	}

	result := objutil.CloneDocument(doc)
	if result == nil {
		result = domain.Document{}
	}

	applied := map[string]bool{}
	for _, op := range canonicalOrder {
		args, ok := upd[op]
		if !ok {
			continue
		}
		applied[op] = true
		if err := applyOperator(result, op, args); err != nil {
			return nil, err
		}
	}

	for key := range upd {
		if !applied[key] {
			return nil, domain.NewError(domain.InvalidUpdate, "unknown update operator %q", key)
		}
	}

	if id, ok := doc[idField]; ok {
		newID, stillPresent := result[idField]
		if !stillPresent || !objutil.DeepEqual(id, newID) {
			return nil, domain.NewError(domain.ImmutableField, "update must not change or remove %q", idField)
		}
	}

	return result, nil
}

func applyOperator(doc domain.Document, op string, args interface{}) error {
	argMap, ok := args.(map[string]interface{})
	if !ok {
		return domain.NewError(domain.InvalidUpdate, "%s requires an object of <path>: <argument> pairs", op)
	}

	paths := make([]string, 0, len(argMap))
	for p := range argMap {
		paths = append(paths, p)
	}
	sort.Strings(paths) // deterministic within-operator order; see canonicalOrder's doc comment

	for _, path := range paths {
		if path == idField && op != "$set" {
			// $unset/$inc/.../$pull on _id are all mutations of an
			// immutable field; let the generic post-check in Apply
			// catch $set-with-same-value, but operators that can only
			// ever change or remove _id fail fast here.
			return domain.NewError(domain.ImmutableField, "update must not change or remove %q", idField)
		}
		arg := argMap[path]
		var err error
		switch op {
		case "$set":
			err = opSet(doc, path, arg)
		case "$unset":
			err = opUnset(doc, path)
		case "$inc":
			err = opIncMul(doc, path, arg, false)
		case "$mul":
			err = opIncMul(doc, path, arg, true)
		case "$min":
			err = opMinMax(doc, path, arg, true)
		case "$max":
			err = opMinMax(doc, path, arg, false)
		case "$push":
			err = opPush(doc, path, arg)
		case "$pull":
			err = opPull(doc, path, arg)
		case "$addToSet":
			err = opAddToSet(doc, path, arg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func opSet(doc domain.Document, path string, value interface{}) error {
	return fieldpath.Set(doc, path, objutil.DeepClone(value))
}

func opUnset(doc domain.Document, path string) error {
	fieldpath.Delete(doc, path)
	return nil
}
