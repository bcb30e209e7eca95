// Package fieldpath parses and traverses dotted document paths such as
// "a.b.0.c". A numeric segment addresses an array index when the parent
// is an array, and an object key when the parent is an object.
package fieldpath

import (
	"strconv"
	"strings"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
)

// missing is a sentinel distinct from an explicit nil, returned by Get
// when an intermediate segment is absent.
type missingType struct{}

// Missing is returned by Get when the path does not resolve to a value.
// It is distinct from an explicit JSON null.
var Missing = missingType{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v interface{}) bool {
	_, ok := v.(missingType)
	return ok
}

// Split parses a dotted path into its ordered segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// isIndex reports whether seg looks like a non-negative integer index.
func isIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Get resolves path against doc, returning Missing when any intermediate
// segment is absent. An explicit stored null is returned as nil, which
// the caller must distinguish from Missing via IsMissing.
func Get(doc interface{}, path string) interface{} {
	segs := Split(path)
	if len(segs) == 0 {
		return doc
	}
	return getSegs(doc, segs)
}

func getSegs(cur interface{}, segs []string) interface{} {
	if len(segs) == 0 {
		return cur
	}
	seg := segs[0]
	rest := segs[1:]

	switch v := cur.(type) {
	case domain.Document:
		val, ok := v[seg]
		if !ok {
			return Missing
		}
		return getSegs(val, rest)
	case map[string]interface{}:
		val, ok := v[seg]
		if !ok {
			return Missing
		}
		return getSegs(val, rest)
	case []interface{}:
		if idx, ok := isIndex(seg); ok {
			if idx < 0 || idx >= len(v) {
				return Missing
			}
			return getSegs(v[idx], rest)
		}
		// Existential semantics: a non-numeric segment against an array
		// matches if it resolves for any element.
		return existentialGet(v, segs)
	default:
		return Missing
	}
}

// existentialResult wraps the set of values reached by descending into
// every array element with the remaining path. Query evaluation treats
// a non-empty, non-missing existentialResult as "some element matches".
type existentialResult struct {
	values []interface{}
}

func existentialGet(arr []interface{}, segs []string) interface{} {
	var out []interface{}
	for _, elem := range arr {
		v := getSegs(elem, segs)
		if IsMissing(v) {
			continue
		}
		if er, ok := v.(existentialResult); ok {
			out = append(out, er.values...)
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return Missing
	}
	return existentialResult{values: out}
}

// Values returns the concrete values represented by a Get result: a
// single-element slice for a scalar/object/array result, or the full
// set of matched values for an existentialResult produced by descending
// through an array. Returns nil (not Missing) if v is Missing.
func Values(v interface{}) []interface{} {
	if IsMissing(v) {
		return nil
	}
	if er, ok := v.(existentialResult); ok {
		return er.values
	}
	return []interface{}{v}
}

// Exists reports whether path resolves to a present value (including an
// explicit null) somewhere in doc.
func Exists(doc interface{}, path string) bool {
	v := Get(doc, path)
	if IsMissing(v) {
		return false
	}
	if er, ok := v.(existentialResult); ok {
		return len(er.values) > 0
	}
	return true
}

// Set assigns value at path, creating intermediate objects (never
// arrays) on demand. Returns an error if an existing intermediate isn't
// an object/array, or if a numeric segment would require padding an
// array (creating indices beyond its current length).
func Set(doc domain.Document, path string, value interface{}) error {
	segs := Split(path)
	if len(segs) == 0 {
		return domain.NewError(domain.InvalidUpdate, "empty path")
	}
	return setSegs(doc, segs, value)
}

func setSegs(container interface{}, segs []string, value interface{}) error {
	seg := segs[0]
	last := len(segs) == 1

	switch c := container.(type) {
	case domain.Document:
		if last {
			c[seg] = value
			return nil
		}
		next, ok := c[seg]
		if !ok {
			next = domain.Document{}
			c[seg] = next
		}
		nextContainer, err := asContainer(next)
		if err != nil {
			return err
		}
		if nd, ok := nextContainer.(domain.Document); ok {
			if err := setSegs(nd, segs[1:], value); err != nil {
				return err
			}
			c[seg] = nd
			return nil
		}
		return setSegs(nextContainer, segs[1:], value)
	case map[string]interface{}:
		return setSegs(domain.Document(c), segs, value)
	case []interface{}:
		idx, ok := isIndex(seg)
		if !ok {
			return domain.NewError(domain.InvalidUpdate, "cannot set non-numeric field %q on array", seg)
		}
		if idx < 0 || idx >= len(c) {
			return domain.NewError(domain.InvalidUpdate, "array index %d out of range (length %d)", idx, len(c))
		}
		if last {
			c[idx] = value
			return nil
		}
		nextContainer, err := asContainer(c[idx])
		if err != nil {
			return err
		}
		if err := setSegs(nextContainer, segs[1:], value); err != nil {
			return err
		}
		c[idx] = nextContainer
		return nil
	default:
		return domain.NewError(domain.InvalidUpdate, "cannot traverse into scalar value at %q", seg)
	}
}

// asContainer normalises a value into a traversable container, creating
// a fresh empty object for a null intermediate. Any other scalar is an
// InvalidUpdate error.
func asContainer(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case domain.Document:
		return t, nil
	case map[string]interface{}:
		return domain.Document(t), nil
	case []interface{}:
		return t, nil
	case nil:
		return domain.Document{}, nil
	default:
		return nil, domain.NewError(domain.InvalidUpdate, "cannot traverse into scalar value")
	}
}

// Delete removes the value at path, a no-op if any segment is already
// absent.
func Delete(doc domain.Document, path string) {
	segs := Split(path)
	if len(segs) == 0 {
		return
	}
	deleteSegs(doc, segs)
}

func deleteSegs(container interface{}, segs []string) {
	seg := segs[0]
	last := len(segs) == 1

	switch c := container.(type) {
	case domain.Document:
		if last {
			delete(c, seg)
			return
		}
		next, ok := c[seg]
		if !ok {
			return
		}
		deleteSegs(next, segs[1:])
	case map[string]interface{}:
		deleteSegs(domain.Document(c), segs)
	case []interface{}:
		idx, ok := isIndex(seg)
		if !ok || idx < 0 || idx >= len(c) {
			return
		}
		if last {
			// Unset on an array element nulls the slot rather than
			// resizing, matching $unset leaving a gap in Mongo semantics.
			c[idx] = nil
			return
		}
		deleteSegs(c[idx], segs[1:])
	}
}
