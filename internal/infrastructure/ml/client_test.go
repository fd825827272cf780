package ml

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesHarvester/internal/domain"
)

func TestClientExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Gophers", req.Title)
		assert.Equal(t, "2025-11-08", req.PublishDate)
		assert.Equal(t, "body", req.Content)

		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"vendor": "Acme"}})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "secret", time.Second)
	require.NoError(t, err)

	ref := domain.ArticleRef{
		Title:         "Gophers",
		Link:          "https://blog.example.com/gophers",
		PublishedDate: time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC),
	}
	data, err := client.Extract(context.Background(), ref, []byte("body"))
	require.NoError(t, err)
	assert.Equal(t, "Acme", data["vendor"])
}

func TestClientExtractErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusBadGateway, want: domain.ErrTransientFetch},
		{name: "bad request", status: http.StatusBadRequest, want: domain.ErrExtraction},
		{name: "service error", status: http.StatusOK, body: `{"error":"unsupported"}`, want: domain.ErrExtraction},
		{name: "empty data", status: http.StatusOK, body: `{"data":{}}`, want: domain.ErrExtraction},
		{name: "garbage", status: http.StatusOK, body: `<html>`, want: domain.ErrExtraction},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := NewClient(server.URL, "", time.Second)
			require.NoError(t, err)

			_, err = client.Extract(context.Background(), domain.ArticleRef{Link: "x"}, nil)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient("", "", 0)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
