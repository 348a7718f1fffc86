package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/linkscout/internal/domain"
	"go.uber.org/zap"
)

func testRow() domain.SheetRow {
	return domain.SheetRow{
		Category:  "policy",
		Link:      "https://example.com/article",
		Title:     "A Headline",
		Summary:   "A short summary.",
		Publisher: "Example News",
		Date:      "03/14/2025",
	}
}

func TestAppendRow(t *testing.T) {
	var got domain.SheetRow
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/add-link", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status": "success"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	err := c.AppendRow(context.Background(), testRow())
	require.NoError(t, err)
	assert.Equal(t, testRow(), got)
}

func TestAppendRowDuplicateIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": "error", "error": "This article already exists in the sheet"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	err := c.AppendRow(context.Background(), testRow())
	assert.NoError(t, err, "a duplicate row means the article is already persisted")
}

func TestAppendRowOtherErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status": "error", "error": "spreadsheet unavailable"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	err := c.AppendRow(context.Background(), testRow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestEnsureWorksheetSkipsExisting(t *testing.T) {
	created := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get-worksheets":
			w.Write([]byte(`{"worksheets": ["policy", "science"]}`))
		case "/create-worksheet":
			created = true
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	require.NoError(t, c.EnsureWorksheet(context.Background(), "policy"))
	assert.False(t, created)
}

func TestEnsureWorksheetCreatesMissing(t *testing.T) {
	var createdTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get-worksheets":
			w.Write([]byte(`{"worksheets": ["science"]}`))
		case "/create-worksheet":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			createdTitle = body["title"]
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	require.NoError(t, c.EnsureWorksheet(context.Background(), "policy"))
	assert.Equal(t, "policy", createdTitle)
}
