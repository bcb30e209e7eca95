package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleListCollections handles GET requests to list every registered
// collection name
func (h *Handler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := h.db.ListCollections(r.Context())
	if err != nil {
		log.Printf("ERROR: ListCollections failed: %v", err)
		WriteEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"collections": names})
}

// HandleDropCollection handles DELETE requests to drop a collection and
// its stored blob
func (h *Handler) HandleDropCollection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleDropCollection called for collection '%s'", collName)

	if err := h.db.DropCollection(r.Context(), collName); err != nil {
		log.Printf("ERROR: Drop failed for collection '%s': %v", collName, err)
		WriteEngineError(w, err)
		return
	}

	log.Printf("INFO: Dropped collection '%s'", collName)
	w.WriteHeader(http.StatusNoContent)
}
