package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseRoundTrip(t *testing.T) {
	payload := map[string]any{"name": "telegraph", "count": float64(3)}
	resp := JSON(200, payload)

	rec := httptest.NewRecorder()
	if err := resp.write(rec); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json; charset=utf-8", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), resp.Body) {
		t.Error("wire body differs from response body")
	}

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding wire body: %v", err)
	}
	if decoded["name"] != "telegraph" || decoded["count"] != float64(3) {
		t.Errorf("decoded = %v, want %v", decoded, payload)
	}
}

func TestTextResponseContentType(t *testing.T) {
	resp := Text(200, "hello")
	rec := httptest.NewRecorder()
	resp.write(rec)

	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/plain; charset=utf-8", got)
	}
	if rec.Body.String() != "hello" {
		t.Errorf("body = %q, want hello", rec.Body.String())
	}
}

// Status codes pass through verbatim; the translator does not validate
// against the HTTP status registry.
func TestResponseStatusPassthrough(t *testing.T) {
	resp := NewResponse(999)
	rec := httptest.NewRecorder()
	resp.write(rec)

	if rec.Code != 999 {
		t.Errorf("status = %d, want 999 passed through", rec.Code)
	}
}

func TestResponseZeroStatusDefaultsToOK(t *testing.T) {
	resp := &Response{}
	rec := httptest.NewRecorder()
	resp.write(rec)

	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestResponseNoBodyNoForcedContentType(t *testing.T) {
	resp := NewResponse(204)
	rec := httptest.NewRecorder()
	resp.write(rec)

	if got := rec.Header().Get("Content-Type"); got != "" {
		t.Errorf("Content-Type = %q, want unset for bodyless response", got)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body length = %d, want 0", rec.Body.Len())
	}
}

func TestResponseWithHeader(t *testing.T) {
	resp := NewResponse(200).WithHeader("X-Custom", "v1")
	rec := httptest.NewRecorder()
	resp.write(rec)

	if got := rec.Header().Get("X-Custom"); got != "v1" {
		t.Errorf("X-Custom = %q, want v1", got)
	}
}
