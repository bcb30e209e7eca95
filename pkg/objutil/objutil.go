// Package objutil provides the deep-clone, deep-equality, and canonical
// (de)serialisation primitives every other gasdb subsystem relies on to
// avoid aliasing documents across API boundaries.
package objutil

import (
	"math"
	"sort"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
)

// DeepClone returns a value with no shared mutable state with v. Dates
// are cloned by value (time.Time is immutable so this is just a copy),
// maps and slices are copied recursively.
func DeepClone(v interface{}) interface{} {
	switch val := v.(type) {
	case domain.Document:
		return cloneDocument(val)
	case map[string]interface{}:
		return cloneDocument(domain.Document(val))
	case []interface{}:
		cp := make([]interface{}, len(val))
		for i, item := range val {
			cp[i] = DeepClone(item)
		}
		return cp
	case time.Time:
		return val
	default:
		// Strings, numbers, bools, nil are immutable/copied by value.
		return val
	}
}

func cloneDocument(d domain.Document) domain.Document {
	cp := make(domain.Document, len(d))
	for k, v := range d {
		cp[k] = DeepClone(v)
	}
	return cp
}

// CloneDocument is a typed convenience wrapper around DeepClone for the
// common case of cloning a whole document.
func CloneDocument(d domain.Document) domain.Document {
	if d == nil {
		return nil
	}
	return cloneDocument(d)
}

// DeepEqual reports whether a and b are structurally equal: object keys
// compare order-insensitively, array elements compare order-sensitively,
// dates compare by instant, and NaN is never equal to anything
// (including itself).
func DeepEqual(a, b interface{}) bool {
	a = normalize(a)
	b = normalize(b)

	switch av := a.(type) {
	case domain.Document:
		bv, ok := b.(domain.Document)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !DeepEqual(v, bvv) {
				return false
			}
		}
		return true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !DeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case float64:
		bv, ok := toFloat64(b)
		if !ok {
			return false
		}
		if math.IsNaN(av) || math.IsNaN(bv) {
			return false
		}
		return av == bv
	default:
		return a == b
	}
}

// normalize folds map[string]interface{} into domain.Document and
// integer kinds into float64 so comparisons don't need to special-case
// every numeric Go type a caller might hand in.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return domain.Document(val)
	default:
		if f, ok := toFloat64(v); ok {
			return f
		}
		return v
	}
}

func toFloat64(v interface{}) (float64, bool) {
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
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// HasInvalidNumber reports whether v (recursively) contains a NaN or
// infinite float. Numeric special values are rejected on insert.
func HasInvalidNumber(v interface{}) bool {
	switch val := v.(type) {
	case float64:
		return math.IsNaN(val) || math.IsInf(val, 0)
	case domain.Document:
		for _, vv := range val {
			if HasInvalidNumber(vv) {
				return true
			}
		}
	case map[string]interface{}:
		for _, vv := range val {
			if HasInvalidNumber(vv) {
				return true
			}
		}
	case []interface{}:
		for _, vv := range val {
			if HasInvalidNumber(vv) {
				return true
			}
		}
	}
	return false
}

// SortedKeys returns a document's keys in sorted order, used by the
// canonical serialiser to make object key order deterministic.
func SortedKeys(d domain.Document) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
