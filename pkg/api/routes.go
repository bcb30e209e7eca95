package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Collection operations
	router.HandleFunc("/collections", h.HandleListCollections).Methods("GET")
	router.HandleFunc("/collections/{coll}", h.HandleInsert).Methods("POST")
	router.HandleFunc("/collections/{coll}", h.HandleDropCollection).Methods("DELETE")

	// Document operations (by ID)
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleUpdateById).Methods("PATCH") // Operator update
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleReplaceById).Methods("PUT")  // Complete replacement
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleDeleteById).Methods("DELETE")

	// Filtered operations (filter in the request body; GET /find takes
	// equality filters from query parameters)
	router.HandleFunc("/collections/{coll}/find", h.HandleFindWithFilter).Methods("GET")
	router.HandleFunc("/collections/{coll}/find", h.HandleFind).Methods("POST")
	router.HandleFunc("/collections/{coll}/count", h.HandleCount).Methods("POST")
	router.HandleFunc("/collections/{coll}/update", h.HandleUpdateMany).Methods("POST")
	router.HandleFunc("/collections/{coll}/delete", h.HandleDeleteMany).Methods("POST")
}
