package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleDeleteById handles DELETE requests to remove a specific document by ID
func (h *Handler) HandleDeleteById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleDeleteById called for collection '%s', document '%s'", collName, docId)

	coll, err := h.db.Collection(r.Context(), collName)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	result, err := coll.DeleteOne(r.Context(), map[string]interface{}{"_id": docId})
	if err != nil {
		log.Printf("ERROR: Delete failed for document '%s' in collection '%s': %v", docId, collName, err)
		WriteEngineError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		WriteJSONError(w, http.StatusNotFound, "Document not found")
		return
	}

	log.Printf("INFO: Deleted document '%s' from collection '%s'", docId, collName)
	w.WriteHeader(http.StatusNoContent)
}
