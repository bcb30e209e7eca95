package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleCount handles POST requests to count documents matching a
// filter expression in the request body
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleCount called for collection '%s'", collName)

	filter, ok := decodeFilterBody(w, r)
	if !ok {
		return
	}

	coll, err := h.db.Collection(r.Context(), collName)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	count, err := coll.CountDocuments(r.Context(), filter)
	if err != nil {
		log.Printf("ERROR: Count failed for collection '%s': %v", collName, err)
		WriteEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"count": count})
}
