// Package api implements the JSON endpoints behind the dashboard: course
// snapshot reads, the transaction status line, and service metadata. Route
// comments feed cmd/docgen.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/adrianncovaci/uni-chain/internal/courses"
	"github.com/adrianncovaci/uni-chain/internal/logger"
)

// StatusSource yields the current transaction status line.
type StatusSource func() string

// Service handles API requests.
type Service struct {
	store   *courses.Store
	account string
	status  StatusSource
	logger  *logger.Logger
}

// NewService creates a new API service. account is the viewer's own ledger
// address; status may be nil when no transaction has been submitted yet.
func NewService(store *courses.Store, account string, status StatusSource, logger *logger.Logger) *Service {
	return &Service{
		store:   store,
		account: account,
		status:  status,
		logger:  logger,
	}
}

// writeJSON writes a JSON response
func (s *Service) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
