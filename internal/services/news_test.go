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

func TestTopHeadlinesSkipsEmptyTitles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "台灣", r.URL.Query().Get("q"))
		assert.Equal(t, "zh", r.URL.Query().Get("language"))
		assert.Equal(t, "publishedAt", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "3", r.URL.Query().Get("pageSize"))
		fmt.Fprint(w, `{"status":"ok","articles":[
			{"title":"央行宣布利率不變 - 中央社","url":"https://news.example.com/1","source":{"name":"中央社"}},
			{"title":"","url":"https://news.example.com/2","source":{"name":"空白社"}},
			{"title":"台股收盤上漲百點","url":"https://news.example.com/3","source":{"name":"經濟日報"}}
		]}`)
	}))
	defer srv.Close()

	svc := NewNewsService("test-key", 3, WithNewsBaseURL(srv.URL))
	headlines, err := svc.TopHeadlines(context.Background())

	require.NoError(t, err)
	require.Len(t, headlines, 2)
	assert.Equal(t, "央行宣布利率不變", headlines[0].Title)
	assert.Equal(t, "中央社", headlines[0].Source)
	assert.Equal(t, "台股收盤上漲百點", headlines[1].Title)
}

func TestTopHeadlinesRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","articles":[]}`)
	}))
	defer srv.Close()

	svc := NewNewsService("test-key", 5, WithNewsBaseURL(srv.URL))
	_, err := svc.TopHeadlines(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
