package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch_OK(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(WithUserAgent("test-agent"))
	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, page.OK())
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "text/html", page.ContentType)
	assert.Equal(t, "<html><body>hello</body></html>", string(page.Body))
	assert.Equal(t, "test-agent", gotUA)
}

func TestFetcher_Fetch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	page, err := NewFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, page.OK())
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Equal(t, "Not Found", page.StatusText)
	assert.Empty(t, page.Body)
}

func TestFetcher_Fetch_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	page, err := NewFetcher(WithMaxBodyBytes(4)).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(page.Body))
}

func TestFetcher_Fetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	page, err := NewFetcher().Fetch(context.Background(), url)
	require.Error(t, err)
	assert.Nil(t, page)
}
