package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractURL(t *testing.T) {
	assert.Equal(t, "https://example.com/a?b=1", ExtractURL("看看這個 https://example.com/a?b=1 超酷"))
	assert.Equal(t, "http://example.com", ExtractURL("http://example.com"))
	assert.Empty(t, ExtractURL("完全沒有連結的訊息"))
	assert.Empty(t, ExtractURL("ftp://example.com/file"))
}

func TestIsYouTubeURL(t *testing.T) {
	assert.True(t, IsYouTubeURL("https://www.youtube.com/watch?v=abc123"))
	assert.True(t, IsYouTubeURL("https://youtu.be/abc123"))
	assert.True(t, IsYouTubeURL("https://m.youtube.com/watch?v=abc123"))
	assert.False(t, IsYouTubeURL("https://example.com/youtube"))
	assert.False(t, IsYouTubeURL("not a url"))
}

func TestFetchReadableStripsMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>測試頁</title><script>var x = 1;</script>
			<style>body{color:red}</style></head>
			<body><nav>選單</nav><h1>主標題</h1><p>第一段   內容。</p>
			<footer>頁尾</footer></body></html>`)
	}))
	defer srv.Close()

	svc := NewWebService()
	text, err := svc.FetchReadable(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, text, "主標題")
	assert.Contains(t, text, "第一段 內容。")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "選單")
	assert.NotContains(t, text, "頁尾")
}

func TestFetchReadableTruncatesLongPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>")
		for i := 0; i < 500; i++ {
			fmt.Fprint(w, "很長的內容")
		}
		fmt.Fprint(w, "</p></body></html>")
	}))
	defer srv.Close()

	svc := NewWebService(WithWebMaxChars(100))
	text, err := svc.FetchReadable(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Len(t, []rune(text), 100)
}

func TestFetchReadableReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewWebService()
	_, err := svc.FetchReadable(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, HTTPStatusCode(err))
	assert.False(t, IsTransient(err))
}
