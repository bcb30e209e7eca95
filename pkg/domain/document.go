// Package domain holds the shared types every gasdb subsystem depends on:
// the Document representation, collection metadata, and the engine's
// error taxonomy.
package domain

// Document represents a document in the database. "_id" is mandatory,
// unique within a collection, and non-empty.
type Document map[string]interface{}

// IsOperatorKey reports whether a top-level key is an operator marker
// ("$eq", "$set", ...), forbidden inside a stored document.
func IsOperatorKey(key string) bool {
	return len(key) > 0 && key[0] == '$'
}

// HasOperatorKeys reports whether v (or any nested object/array it
// contains) has a key starting with "$". Stored documents must never
// contain operator-shaped keys at any depth.
func HasOperatorKeys(v interface{}) bool {
	switch val := v.(type) {
	case Document:
		for k, vv := range val {
			if IsOperatorKey(k) || HasOperatorKeys(vv) {
				return true
			}
		}
	case map[string]interface{}:
		for k, vv := range val {
			if IsOperatorKey(k) || HasOperatorKeys(vv) {
				return true
			}
		}
	case []interface{}:
		for _, vv := range val {
			if HasOperatorKeys(vv) {
				return true
			}
		}
	}
	return false
}
