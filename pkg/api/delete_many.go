package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleDeleteMany handles POST requests to remove every document
// matching a filter expression in the request body
func (h *Handler) HandleDeleteMany(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleDeleteMany called for collection '%s'", collName)

	filter, ok := decodeFilterBody(w, r)
	if !ok {
		return
	}

	coll, err := h.db.Collection(r.Context(), collName)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	result, err := coll.DeleteMany(r.Context(), filter)
	if err != nil {
		log.Printf("ERROR: DeleteMany failed for collection '%s': %v", collName, err)
		WriteEngineError(w, err)
		return
	}

	log.Printf("INFO: Deleted %d documents from collection '%s'", result.DeletedCount, collName)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"deletedCount": result.DeletedCount,
		"acknowledged": result.Acknowledged,
	})
}
