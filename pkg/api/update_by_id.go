package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleUpdateById handles PATCH requests to apply an update-operator
// expression to a specific document by ID
func (h *Handler) HandleUpdateById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleUpdateById called for collection '%s', document '%s'", collName, docId)

	var update map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	coll, err := h.db.Collection(r.Context(), collName)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	result, err := coll.UpdateOne(r.Context(), map[string]interface{}{"_id": docId}, update)
	if err != nil {
		log.Printf("ERROR: Update failed for document '%s' in collection '%s': %v", docId, collName, err)
		WriteEngineError(w, err)
		return
	}
	if result.MatchedCount == 0 {
		WriteJSONError(w, http.StatusNotFound, "Document not found")
		return
	}

	log.Printf("INFO: Updated document '%s' in collection '%s' (modified=%d)", docId, collName, result.ModifiedCount)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"matchedCount":  result.MatchedCount,
		"modifiedCount": result.ModifiedCount,
		"acknowledged":  result.Acknowledged,
	})
}
