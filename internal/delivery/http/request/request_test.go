package request

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "1", want: 1, wantOK: true},
		{in: "5", want: 5, wantOK: true},
		{in: "0", want: 0, wantOK: true},
		{in: "-3", want: -3, wantOK: true},
		{in: "4.5", wantOK: false},
		{in: "5.0", wantOK: false},
		{in: "1e0", wantOK: false},
		{in: "", wantOK: false},
		{in: "99999999999", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRating(json.Number(tt.in))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Rating json.Number `json:"rating"`
		Title  string      `json:"title"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":4.5,"title":"x"}`))
	require.NoError(t, DecodeJSON(r, &body))
	assert.Equal(t, json.Number("4.5"), body.Rating)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.EqualError(t, DecodeJSON(r, &body), "empty request body")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rating":`))
	assert.Error(t, DecodeJSON(r, &body))
}

func TestGetInt64Param(t *testing.T) {
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", value)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := GetInt64Param(withParam("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err := GetInt64Param(withParam(bad), "id")
		assert.Error(t, err, bad)
	}
}

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{query: "", wantLimit: 10, wantOffset: 0},
		{query: "limit=25&offset=50", wantLimit: 25, wantOffset: 50},
		{query: "limit=1000", wantLimit: 100, wantOffset: 0},
		{query: "limit=0&offset=-5", wantLimit: 10, wantOffset: 0},
		{query: "limit=abc&offset=xyz", wantLimit: 10, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			limit, offset := GetPaginationParams(r, 10, 100)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}
