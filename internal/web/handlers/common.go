// Package handlers implements the HTTP API on top of the verification engine
// and the stores. Handlers translate transport concerns (multipart parsing,
// status codes) and leave every policy decision to the engine.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/verid/facegate/internal/engine"
)

// MaxUploadSize caps multipart uploads (camera frames are a few MB at most).
const MaxUploadSize = 10 << 20

// Pipeline is the engine surface the handlers drive. The production
// implementation is *engine.Engine.
type Pipeline interface {
	Enroll(ctx context.Context, identityID, displayName string, image []byte) (engine.EnrollResult, error)
	CheckIn(ctx context.Context, req engine.CheckInRequest) (engine.CheckInResult, error)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// readImageFile extracts the uploaded image from the "file" multipart field.
func readImageFile(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	return data, nil
}
