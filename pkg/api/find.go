package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleFind handles POST requests to find documents matching a filter
// expression in the request body. An empty body matches every document.
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleFind called for collection '%s'", collName)

	filter, ok := decodeFilterBody(w, r)
	if !ok {
		return
	}

	coll, err := h.db.Collection(r.Context(), collName)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	docs, err := coll.Find(r.Context(), filter)
	if err != nil {
		log.Printf("ERROR: Find failed for collection '%s': %v", collName, err)
		WriteEngineError(w, err)
		return
	}

	log.Printf("INFO: Found %d documents in collection '%s'", len(docs), collName)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

// decodeFilterBody decodes an optional JSON filter from the request
// body. A missing or empty body yields an empty filter.
func decodeFilterBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	var filter map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("ERROR: Decoding filter body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid filter body")
		return nil, false
	}
	if filter == nil {
		filter = map[string]interface{}{}
	}
	return filter, true
}
