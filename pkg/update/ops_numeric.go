package update

import (
	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/adfharrison1/gasdb-go/pkg/fieldpath"
	"github.com/adfharrison1/gasdb-go/pkg/objutil"
	"github.com/adfharrison1/gasdb-go/pkg/query"
)

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// opIncMul applies $inc (mul=false) or $mul (mul=true). A missing field
// is treated as 0; a present non-numeric field is an InvalidUpdate.
func opIncMul(doc domain.Document, path string, arg interface{}, mul bool) error {
	delta, ok := asNumber(arg)
	if !ok {
		op := "$inc"
		if mul {
			op = "$mul"
		}
		return domain.NewError(domain.InvalidUpdate, "%s requires a numeric argument at %q", op, path)
	}

	current := fieldpath.Get(doc, path)
	var base float64
	if !fieldpath.IsMissing(current) {
		n, ok := asNumber(current)
		if !ok {
			op := "$inc"
			if mul {
				op = "$mul"
			}
			return domain.NewError(domain.InvalidUpdate, "%s: existing value at %q is not numeric", op, path)
		}
		base = n
	}

	var result float64
	if mul {
		result = base * delta
	} else {
		result = base + delta
	}
	return fieldpath.Set(doc, path, result)
}

// opMinMax applies $min (lower=true keeps the smaller value) or $max
// (lower=false keeps the larger value). A missing field always takes
// arg; an incomparable pair (cross-type, or a type with no ordering) is
// an InvalidUpdate.
func opMinMax(doc domain.Document, path string, arg interface{}, lower bool) error {
	current := fieldpath.Get(doc, path)
	if fieldpath.IsMissing(current) {
		return fieldpath.Set(doc, path, objutil.DeepClone(arg))
	}

	cmp, comparable := query.Compare(arg, current)
	if !comparable {
		op := "$min"
		if !lower {
			op = "$max"
		}
		return domain.NewError(domain.InvalidUpdate, "%s requires comparable values at %q", op, path)
	}

	replace := (lower && cmp < 0) || (!lower && cmp > 0)
	if replace {
		return fieldpath.Set(doc, path, objutil.DeepClone(arg))
	}
	return nil
}
