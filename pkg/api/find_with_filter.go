package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// HandleFindWithFilter handles GET requests to find documents with
// equality filter criteria taken from query parameters
func (h *Handler) HandleFindWithFilter(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleFindWithFilter called for collection '%s'", collName)

	// Parse query parameters to build filter
	filter := make(map[string]interface{})
	queryParams := r.URL.Query()

	for key, values := range queryParams {
		if len(values) > 0 {
			value := values[0] // Take first value if multiple provided

			// Try to convert to number if possible
			if num, err := strconv.ParseFloat(value, 64); err == nil {
				filter[key] = num
			} else if value == "true" || value == "false" {
				filter[key] = value == "true"
			} else {
				// Treat as string
				filter[key] = value
			}
		}
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

	log.Printf("INFO: Found %d documents in collection '%s' with filter %v", len(docs), collName, filter)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}
