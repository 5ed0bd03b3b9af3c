package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/razroo/github-oidc-handler/internal/models"
)

func testPayload() models.CallbackPayload {
	return models.CallbackPayload{
		GithubOrg:       "acme",
		OrgID:           "org-42",
		RoleArn:         "arn:aws:iam::123456789012:role/github-actions",
		OidcProviderArn: "arn:aws:iam::123456789012:oidc-provider/token.actions.githubusercontent.com",
		RepositoryName:  "platform",
		StackID:         "arn:aws:cloudformation:us-west-2:123456789012:stack/oidc/abc",
	}
}

func TestNotify_Success(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("failed to unmarshal request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	service := NewCallbackService()
	body, err := service.Notify(context.Background(), server.URL, testPayload())
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if body != `{"ok":true}` {
		t.Errorf("Notify() body = %v, want %v", body, `{"ok":true}`)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %v, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %v, want application/json", gotContentType)
	}

	want := map[string]string{
		"githubOrg":       "acme",
		"orgId":           "org-42",
		"roleArn":         "arn:aws:iam::123456789012:role/github-actions",
		"oidcProviderArn": "arn:aws:iam::123456789012:oidc-provider/token.actions.githubusercontent.com",
		"repositoryName":  "platform",
		"stackId":         "arn:aws:cloudformation:us-west-2:123456789012:stack/oidc/abc",
	}
	for key, wantVal := range want {
		if gotBody[key] != wantVal {
			t.Errorf("payload[%s] = %v, want %v", key, gotBody[key], wantVal)
		}
	}
}

func TestNotify_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	service := NewCallbackService()
	_, err := service.Notify(context.Background(), server.URL, testPayload())
	if err == nil {
		t.Fatal("Notify() expected error for 502 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error %q should contain status code 502", err.Error())
	}
	if !strings.Contains(err.Error(), "upstream unavailable") {
		t.Errorf("error %q should contain response body", err.Error())
	}
}

func TestNotify_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	service := NewCallbackService()
	_, err := service.Notify(context.Background(), server.URL, testPayload())
	if err == nil {
		t.Fatal("Notify() expected error for unreachable endpoint")
	}
}
