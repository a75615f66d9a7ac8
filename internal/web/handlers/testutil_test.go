package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/verid/facegate/internal/engine"
	"github.com/verid/facegate/internal/inference"
)

// fakePipeline scripts engine results for handler tests.
type fakePipeline struct {
	enrollResult  engine.EnrollResult
	enrollErr     error
	checkinResult engine.CheckInResult
	checkinErr    error

	lastEnrollID   string
	lastEnrollName string
	lastCheckin    engine.CheckInRequest
}

func (f *fakePipeline) Enroll(_ context.Context, identityID, displayName string, _ []byte) (engine.EnrollResult, error) {
	f.lastEnrollID = identityID
	f.lastEnrollName = displayName
	return f.enrollResult, f.enrollErr
}

func (f *fakePipeline) CheckIn(_ context.Context, req engine.CheckInRequest) (engine.CheckInResult, error) {
	f.lastCheckin = req
	return f.checkinResult, f.checkinErr
}

// fakeDetector scripts detection results.
type fakeDetector struct {
	faces []inference.AlignedFace
	err   error
}

func (f *fakeDetector) DetectFaces(_ context.Context, _ []byte) ([]inference.AlignedFace, error) {
	return f.faces, f.err
}

// fakeHealth scripts the inference health probe.
type fakeHealth struct {
	err error
}

func (f *fakeHealth) Health(_ context.Context) error {
	return f.err
}

// multipartRequest builds a multipart request with an image file and extra
// form fields.
func multipartRequest(t *testing.T, path string, image []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if image != nil {
		part, err := writer.CreateFormFile("file", "frame.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// testEmbedding builds a valid unit embedding for seeding mock stores.
func testEmbedding() []float32 {
	emb := make([]float32, 512)
	emb[0] = 1
	return emb
}
