package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentWeatherResolvesCityAndConditions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/geo/1.0/direct"):
			assert.Equal(t, "台北", r.URL.Query().Get("q"))
			fmt.Fprint(w, `[{"name":"Taipei","local_names":{"zh":"臺北"},"lat":25.03,"lon":121.56}]`)
		case strings.HasPrefix(r.URL.Path, "/data/2.5/weather"):
			fmt.Fprint(w, `{"weather":[{"description":"晴，少雲","icon":"02d"}],"main":{"temp":30.2,"feels_like":33.1,"humidity":68},"wind":{"speed":3.6}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewWeatherService("test-key", WithWeatherBaseURL(srv.URL))
	report, err := svc.Current(context.Background(), "台北")

	require.NoError(t, err)
	assert.Equal(t, "臺北", report.City)
	assert.Equal(t, "晴，少雲", report.Description)
	assert.InDelta(t, 30.2, report.Temp, 0.001)
	assert.InDelta(t, 33.1, report.FeelsLike, 0.001)
	assert.Equal(t, 68, report.Humidity)
	assert.InDelta(t, 3.6, report.WindSpeed, 0.001)
}

func TestCurrentWeatherUnknownCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	svc := NewWeatherService("test-key", WithWeatherBaseURL(srv.URL))
	_, err := svc.Current(context.Background(), "不存在市")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTransient(err))
}

func TestCurrentWeatherServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewWeatherService("test-key", WithWeatherBaseURL(srv.URL))
	_, err := svc.Current(context.Background(), "台北")

	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, HTTPStatusCode(err))
	assert.True(t, IsTransient(err))
}

func TestForecastAggregatesSlotsPerDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	day1Morning := time.Date(2025, 6, 2, 9, 0, 0, 0, loc).Unix()
	day1Noon := time.Date(2025, 6, 2, 12, 0, 0, 0, loc).Unix()
	day2Noon := time.Date(2025, 6, 3, 12, 0, 0, 0, loc).Unix()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/geo/1.0/direct"):
			fmt.Fprint(w, `[{"name":"Kaohsiung","local_names":{"zh":"高雄"},"lat":22.63,"lon":120.30}]`)
		case strings.HasPrefix(r.URL.Path, "/data/2.5/forecast"):
			fmt.Fprintf(w, `{"list":[
				{"dt":%d,"weather":[{"description":"陰","icon":"04d"}],"main":{"temp_min":24.0,"temp_max":26.0}},
				{"dt":%d,"weather":[{"description":"晴","icon":"01d"}],"main":{"temp_min":27.0,"temp_max":31.5}},
				{"dt":%d,"weather":[{"description":"小雨","icon":"10d"}],"main":{"temp_min":23.0,"temp_max":28.0}}
			]}`, day1Morning, day1Noon, day2Noon)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewWeatherService("test-key", WithWeatherBaseURL(srv.URL))
	city, days, err := svc.Forecast(context.Background(), "高雄")

	require.NoError(t, err)
	assert.Equal(t, "高雄", city)
	require.Len(t, days, 2)
	assert.Equal(t, "晴", days[0].Description)
	assert.InDelta(t, 24.0, days[0].MinTemp, 0.001)
	assert.InDelta(t, 31.5, days[0].MaxTemp, 0.001)
	assert.Equal(t, "小雨", days[1].Description)
	assert.Contains(t, days[0].IconURL(), "01d@2x.png")
	assert.True(t, days[0].Date.Before(days[1].Date))
}
