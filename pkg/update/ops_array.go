package update

import (
	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/fieldpath"
	"github.com/adfharrison1/gasdb-go/pkg/objutil"
	"github.com/adfharrison1/gasdb-go/pkg/query"
)

// eachItems unwraps a {"$each": [...]} wrapper. Any other argument shape
// is treated as a single item to append/add.
func eachItems(arg interface{}, opName, path string) ([]interface{}, error) {
	if m, ok := arg.(map[string]interface{}); ok {
		if each, present := m["$each"]; present {
			arr, ok := each.([]interface{})
			if !ok {
				return nil, domain.NewError(domain.InvalidUpdate, "%s $each at %q requires an array", opName, path)
			}
			return arr, nil
		}
	}
	return []interface{}{arg}, nil
}

func currentArray(doc domain.Document, path, opName string) ([]interface{}, error) {
	current := fieldpath.Get(doc, path)
	if fieldpath.IsMissing(current) {
		return nil, nil
	}
	arr, ok := current.([]interface{})
	if !ok {
		return nil, domain.NewError(domain.InvalidUpdate, "%s requires an array at %q", opName, path)
	}
	return arr, nil
}

func opPush(doc domain.Document, path string, arg interface{}) error {
	items, err := eachItems(arg, "$push", path)
	if err != nil {
		return err
	}
	arr, err := currentArray(doc, path, "$push")
	if err != nil {
		return err
	}
	for _, item := range items {
		arr = append(arr, objutil.DeepClone(item))
	}
	return fieldpath.Set(doc, path, arr)
}

func opAddToSet(doc domain.Document, path string, arg interface{}) error {
	items, err := eachItems(arg, "$addToSet", path)
	if err != nil {
		return err
	}
	arr, err := currentArray(doc, path, "$addToSet")
	if err != nil {
		return err
	}
	for _, item := range items {
		present := false
		for _, existing := range arr {
			if objutil.DeepEqual(existing, item) {
				present = true
				break
			}
		}
		if !present {
			arr = append(arr, objutil.DeepClone(item))
		}
	}
	return fieldpath.Set(doc, path, arr)
}

func opPull(doc domain.Document, path string, arg interface{}) error {
	arr, err := currentArray(doc, path, "$pull")
	if err != nil {
		return err
	}
	if arr == nil {
		return nil
	}

	kept := make([]interface{}, 0, len(arr))
	for _, elem := range arr {
		match, err := pullMatches(elem, arg)
		if err != nil {
			return err
		}
		if !match {
			kept = append(kept, elem)
		}
	}
	return fieldpath.Set(doc, path, kept)
}

// pullMatches reports whether elem should be removed under $pull's arg,
// which is either an operator object applied directly to the element
// (e.g. {"$gt": 3}), a sub-filter applied to the element as a document
// (e.g. {"qty": {"$gt": 10}}), or a literal matched by deep equality.
func pullMatches(elem interface{}, arg interface{}) (bool, error) {
	if m, ok := arg.(map[string]interface{}); ok {
		if query.IsOperatorObject(m) {
			return query.EvaluateOperatorObject(elem, m)
		}
		elemDoc, ok := toDocument(elem)
		if !ok {
			return false, nil
		}
		f, err := query.Compile(m)
		if err != nil {
			return false, err
		}
		return f.Matches(elemDoc), nil
	}
	return objutil.DeepEqual(elem, arg), nil
}

func toDocument(v interface{}) (domain.Document, bool) {
	switch d := v.(type) {
	case domain.Document:
		return d, true
	case map[string]interface{}:
		return domain.Document(d), true
	default:
		return nil, false
	}
}
