package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/gasdb-go/pkg/domain"
	"github.com/gorilla/mux"
)

// HandleInsert handles POST requests to insert documents into collections
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleInsert called for collection '%s'", collName)

	var doc domain.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	coll, err := h.db.Collection(r.Context(), collName)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	result, err := coll.InsertOne(r.Context(), doc)
	if err != nil {
		log.Printf("ERROR: Insert failed for collection '%s': %v", collName, err)
		WriteEngineError(w, err)
		return
	}

	log.Printf("INFO: Insert successful for collection '%s' (id '%s')", collName, result.InsertedID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"insertedId":   result.InsertedID,
		"acknowledged": result.Acknowledged,
	})
}
