package bink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskResolvesSources(t *testing.T) {
	var gotKey, gotQuestion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/knowledge/ask" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("x-api-key")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuestion = body["question"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":" BINK is an AI agent. ","sources":[{"title":"Docs","path":"/docs/intro"},{"title":"Blog","url":"https://blog.example/post"}]}`))
	}))
	defer srv.Close()

	p, err := New(Config{APIKey: "secret", APIURL: srv.URL + "/", BaseURL: "https://bink.ai"})
	require.NoError(t, err)

	answer, err := p.Ask(context.Background(), "what is bink?")
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "what is bink?", gotQuestion)
	assert.Equal(t, "BINK is an AI agent.", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "https://bink.ai/docs/intro", answer.Sources[0].URL)
	assert.Equal(t, "https://blog.example/post", answer.Sources[1].URL)
}

func TestAskPropagatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := New(Config{APIKey: "bad", APIURL: srv.URL})
	require.NoError(t, err)
	_, err = p.Ask(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{APIURL: "https://api"})
	assert.Error(t, err)
	_, err = New(Config{APIKey: "k"})
	assert.Error(t, err)
	p, err := New(Config{APIKey: "k", APIURL: "https://api"})
	require.NoError(t, err)
	_, err = p.Ask(context.Background(), "  ")
	assert.Error(t, err)
}
