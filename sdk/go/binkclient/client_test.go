package binkclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient("localhost:8080", nil); err == nil {
		t.Fatal("expected error for url without scheme")
	}
}

func TestListActionsSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/actions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"plugin":  "bink",
			"actions": []Action{{Name: "EXECUTE_TRANSACTION"}, {Name: "GET_WALLET_INFO"}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.SetAPIToken("secret")

	actions, err := client.ListActions(context.Background())
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 2 || actions[1].Name != "GET_WALLET_INFO" {
		t.Fatalf("unexpected actions %+v", actions)
	}
}

func TestInvokeReturnsFallbackResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["text"] != "swap 1 BNB" {
			t.Errorf("unexpected body %v (%v)", body, err)
		}
		switch r.URL.Path {
		case "/api/v1/actions/EXECUTE_TRANSACTION":
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(Result{OK: false, Text: "fallback"})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown action"})
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Invoke(context.Background(), "EXECUTE_TRANSACTION", "swap 1 BNB")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if result.OK || result.Text != "fallback" {
		t.Fatalf("unexpected result %+v", result)
	}

	_, err = client.Invoke(context.Background(), "DEPLOY", "swap 1 BNB")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "unknown action" {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestExecutionsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "3" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"executions": []Execution{{ID: 1, Action: "GET_WALLET_INFO", Status: "succeeded"}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	records, err := client.Executions(context.Background(), 3)
	if err != nil {
		t.Fatalf("executions: %v", err)
	}
	if len(records) != 1 || records[0].Status != "succeeded" {
		t.Fatalf("unexpected records %+v", records)
	}
}
