package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dhruvj7/careflow/internal/models"
)

// Marshaled once at startup so an encoding failure at request time still has
// a well-formed error body to fall back on.
var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("marshal of fallback error response failed: %v", err))
	}
}

// writeJSONResponse marshals the envelope before touching the ResponseWriter.
// Headers go out only once the body is known good, so an encoding error
// downgrades to the fallback body and a 500 instead of a half-written reply.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: marshal failed", "error", err)
		body = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeJSONResponse: write failed", "error", err)
	}
}
