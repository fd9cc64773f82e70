package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/shopfront/internal/domain"
)

const testSession = "3f2b8c4e-9a1d-4c6b-8e2f-1a2b3c4d5e6f"

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details []domain.FieldError `json:"details"`
	} `json:"error"`
}

// newRequest builds a request carrying the test session and path values
// given as name/value pairs.
func newRequest(method, target, body string, pathValues ...string) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return req.WithContext(domain.NewContextWithSession(req.Context(), domain.Session{ID: testSession}))
}

func serve(t *testing.T, h http.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, req)

	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}
