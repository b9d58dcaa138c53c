// Package testutil holds helpers shared by HTTP-level tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// Envelope mirrors the {code, info} pair every response carries.
type Envelope struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}

// AssertNoError fails the test immediately if err is not nil.
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// AssertEnvelope checks status and envelope code and returns the full body.
func AssertEnvelope(t *testing.T, rr *httptest.ResponseRecorder, status, code int) map[string]interface{} {
	t.Helper()
	AssertStatusCode(t, rr, status)
	body := ParseJSONResponse(t, rr.Body.Bytes())
	got, ok := body["code"].(float64)
	if !ok || int(got) != code {
		t.Errorf("expected envelope code %d, got %v (info %v)", code, body["code"], body["info"])
	}
	return body
}

// NewJSONRequest builds a request with data as its JSON body. A non-empty
// token is sent as a bearer Authorization header.
func NewJSONRequest(t *testing.T, method, path string, data interface{}, token string) *http.Request {
	t.Helper()
	var req *http.Request
	if data == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		body, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("failed to marshal JSON: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// RandomUsername returns a name that passes username validation.
func RandomUsername() string {
	return "u_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// ParseJSONResponse parses a JSON response body into a map.
func ParseJSONResponse(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return result
}
