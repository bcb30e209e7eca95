package query

import "github.com/adfharrison1/gasdb-go/pkg/domain"

// FindFirst returns the first document in docs matching f, or nil if
// none match. docs is consumed in order.
func FindFirst(docs []domain.Document, f *Filter) domain.Document {
	for _, d := range docs {
		if f.Matches(d) {
			return d
		}
	}
	return nil
}

// FindAll returns every document in docs matching f.
func FindAll(docs []domain.Document, f *Filter) []domain.Document {
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if f.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of documents in docs matching f.
func Count(docs []domain.Document, f *Filter) int {
	n := 0
	for _, d := range docs {
		if f.Matches(d) {
			n++
		}
	}
	return n
}
