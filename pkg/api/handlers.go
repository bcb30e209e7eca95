package api

import (
	"github.com/adfharrison1/gasdb-go/pkg/gasdb"
)

// Handler provides HTTP handlers over a gasdb Database
type Handler struct {
	db *gasdb.Database
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(db *gasdb.Database) *Handler {
	return &Handler{db: db}
}
