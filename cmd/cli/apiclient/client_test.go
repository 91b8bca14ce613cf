package apiclient

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"validation failed","fields":{"email":"invalid"}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	err := c.PostJSON("/auth/signup", map[string]string{}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "validation failed" || apiErr.Fields["email"] != "invalid" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	var apiErr *APIError
	if err := c.GetJSON("/user/profile", nil, nil); !errors.As(err, &apiErr) || apiErr.Message != "bad gateway" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UsesEnvURL(t *testing.T) {
	t.Setenv("ACCOUNT_API_URL", "http://api.example:9000/")
	if got := New().BaseURL; got != "http://api.example:9000" {
		t.Errorf("BaseURL: got %q", got)
	}
}
