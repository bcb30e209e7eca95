package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/gorilla/mux"
)

// HandleReplaceById handles PUT requests to completely replace a
// specific document by ID
func (h *Handler) HandleReplaceById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleReplaceById called for collection '%s', document '%s'", collName, docId)

	var replacement domain.Document
	if err := json.NewDecoder(r.Body).Decode(&replacement); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	coll, err := h.db.Collection(r.Context(), collName)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	result, err := coll.ReplaceOne(r.Context(), map[string]interface{}{"_id": docId}, replacement)
	if err != nil {
		log.Printf("ERROR: Replace failed for document '%s' in collection '%s': %v", docId, collName, err)
		WriteEngineError(w, err)
		return
	}
	if result.MatchedCount == 0 {
		WriteJSONError(w, http.StatusNotFound, "Document not found")
		return
	}

	log.Printf("INFO: Replaced document '%s' in collection '%s'", docId, collName)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"matchedCount":  result.MatchedCount,
		"modifiedCount": result.ModifiedCount,
		"acknowledged":  result.Acknowledged,
	})
}
