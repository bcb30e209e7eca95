package objutil

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
)

// dateTag and metadataTag are discriminated-tag markers: each persisted
// object with a non-native Go type carries a "__type__" tag that the
// decoder recognises, while plain JSON primitives and objects round-trip
// untouched.
const (
	dateTag     = "date"
	metadataTag = "collectionMetadata"
)

type taggedValue struct {
	Type  string `json:"__type__"`
	Value string `json:"value"`
}

// Marshal encodes v into its canonical JSON form: object keys sorted,
// dates tagged so Unmarshal can restore time.Time instants.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(encode(v))
}

func encode(v interface{}) interface{} {
	switch val := v.(type) {
	case domain.Document:
		return encodeMap(val)
	case map[string]interface{}:
		return encodeMap(val)
	case *domain.CollectionMetadata:
		if val == nil {
			return nil
		}
		return encodeMetadata(val)
	case domain.CollectionMetadata:
		return encodeMetadata(&val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = encode(item)
		}
		return out
	case time.Time:
		return taggedValue{Type: dateTag, Value: val.UTC().Format(time.RFC3339Nano)}
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			// Guarded at the insert boundary (domain.InvalidDocument); if
			// one slips through here there is nowhere safe to put it in
			// JSON, so fail loudly rather than silently write "null".
			return fmt.Sprintf("<<invalid-number:%v>>", val)
		}
		return val
	default:
		return val
	}
}

func encodeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = encode(v)
	}
	return out
}

func encodeMetadata(m *domain.CollectionMetadata) map[string]interface{} {
	return map[string]interface{}{
		"__type__":          metadataTag,
		"name":              m.Name,
		"fileHandle":        m.FileHandle,
		"created":           encode(m.Created),
		"lastUpdated":       encode(m.LastUpdated),
		"documentCount":     m.DocumentCount,
		"modificationToken": m.ModificationToken,
	}
}

// Unmarshal decodes canonical JSON produced by Marshal back into native
// Go values: tagged dates become time.Time, tagged CollectionMetadata
// objects become *domain.CollectionMetadata, everything else becomes
// domain.Document / []interface{} / primitives as encoding/json would.
func Unmarshal(data []byte) (interface{}, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return decode(raw), nil
}

// UnmarshalDocument decodes data as a single document.
func UnmarshalDocument(data []byte) (domain.Document, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(domain.Document)
	if !ok {
		return nil, fmt.Errorf("decoded value is not an object")
	}
	return doc, nil
}

func decode(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if typ, ok := val["__type__"].(string); ok {
			switch typ {
			case dateTag:
				if s, ok := val["value"].(string); ok {
					if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
						return t
					}
				}
			case metadataTag:
				return decodeMetadata(val)
			}
		}
		out := make(domain.Document, len(val))
		for k, vv := range val {
			out[k] = decode(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = decode(item)
		}
		return out
	default:
		return val
	}
}

func decodeMetadata(val map[string]interface{}) *domain.CollectionMetadata {
	m := &domain.CollectionMetadata{}
	if name, ok := val["name"].(string); ok {
		m.Name = name
	}
	if fh, ok := val["fileHandle"].(string); ok {
		m.FileHandle = fh
	}
	if created := decode(val["created"]); created != nil {
		if t, ok := created.(time.Time); ok {
			m.Created = t
		}
	}
	if updated := decode(val["lastUpdated"]); updated != nil {
		if t, ok := updated.(time.Time); ok {
			m.LastUpdated = t
		}
	}
	if dc, ok := val["documentCount"].(float64); ok {
		m.DocumentCount = int(dc)
	}
	if tok, ok := val["modificationToken"].(string); ok {
		m.ModificationToken = tok
	}
	return m
}
