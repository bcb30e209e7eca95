package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// updateManyRequest is the body of POST /collections/{coll}/update.
type updateManyRequest struct {
	Filter map[string]interface{} `json:"filter"`
	Update map[string]interface{} `json:"update"`
}

// HandleUpdateMany handles POST requests to apply an update-operator
// expression to every document matching a filter
func (h *Handler) HandleUpdateMany(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleUpdateMany called for collection '%s'", collName)

	var req updateManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Filter == nil {
		req.Filter = map[string]interface{}{}
	}

	coll, err := h.db.Collection(r.Context(), collName)
	if err != nil {
		WriteEngineError(w, err)
		return
	}

	result, err := coll.UpdateMany(r.Context(), req.Filter, req.Update)
	if err != nil {
		log.Printf("ERROR: UpdateMany failed for collection '%s': %v", collName, err)
		WriteEngineError(w, err)
		return
	}

	log.Printf("INFO: Updated %d of %d matched documents in collection '%s'", result.ModifiedCount, result.MatchedCount, collName)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"matchedCount":  result.MatchedCount,
		"modifiedCount": result.ModifiedCount,
		"acknowledged":  result.Acknowledged,
	})
}
