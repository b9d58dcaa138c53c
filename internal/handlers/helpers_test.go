package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/circleboard/internal/models"
)

func testUser(username string) *models.User {
	return &models.User{ID: uuid.New(), Username: username}
}

// newRequest builds a request with a JSON body (when body is non-nil) and the
// given user already authenticated.
func newRequest(t *testing.T, method, target string, body any, user *models.User) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		req = httptest.NewRequest(method, target, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != nil {
		ctx := SetUserInContext(req.Context(), user)
		ctx = SetTokenInContext(ctx, "token-"+user.Username)
		req = req.WithContext(ctx)
	}
	return req
}

func withPathValue(req *http.Request, name, value string) *http.Request {
	req.SetPathValue(name, value)
	return req
}

func assertEnvelope(t *testing.T, rr *httptest.ResponseRecorder, status, code int, info string) map[string]any {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d (body %s)", status, rr.Code, rr.Body.String())
	}
	if ct := rr.Result().Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected content type application/json, got %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got, _ := body["code"].(float64); int(got) != code {
		t.Fatalf("expected code %d, got %v", code, body["code"])
	}
	if info != "" && body["info"] != info {
		t.Fatalf("expected info %q, got %v", info, body["info"])
	}
	return body
}

func assertSucceed(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	return assertEnvelope(t, rr, http.StatusOK, CodeSucceed, "Succeed")
}
