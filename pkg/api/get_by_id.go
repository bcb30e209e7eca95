package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleGetById handles GET requests to retrieve a specific document by ID
func (h *Handler) HandleGetById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleGetById called for collection '%s', document '%s'", collName, docId)

	coll, err := h.db.Collection(r.Context(), collName)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	doc, err := coll.FindOne(r.Context(), map[string]interface{}{"_id": docId})
	if err != nil {
		log.Printf("ERROR: FindOne failed for document '%s' in collection '%s': %v", docId, collName, err)
		WriteEngineError(w, err)
		return
	}
	if doc == nil {
		WriteJSONError(w, http.StatusNotFound, "Document not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}
