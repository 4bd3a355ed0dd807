package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertUsesLatestRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/latest/USD"))
		fmt.Fprint(w, `{"result":"success","rates":{"USD":1,"TWD":32.5,"JPY":147.2}}`)
	}))
	defer srv.Close()

	svc := NewCurrencyService(WithCurrencyBaseURL(srv.URL))
	converted, rate, err := svc.Convert(context.Background(), 100, "USD", "TWD")

	require.NoError(t, err)
	assert.InDelta(t, 3250.0, converted, 0.001)
	assert.InDelta(t, 32.5, rate, 0.001)
}

func TestConvertUnknownBaseCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"result":"error","error-type":"unsupported-code"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewCurrencyService(WithCurrencyBaseURL(srv.URL))
	_, _, err := svc.Convert(context.Background(), 100, "XXX", "TWD")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestConvertUnknownTargetCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"success","rates":{"USD":1,"TWD":32.5}}`)
	}))
	defer srv.Close()

	svc := NewCurrencyService(WithCurrencyBaseURL(srv.URL))
	_, _, err := svc.Convert(context.Background(), 100, "USD", "ZZZ")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "ZZZ")
}
