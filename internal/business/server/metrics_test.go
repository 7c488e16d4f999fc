package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMeters(t *testing.T) {
	err := initMeters(t.Context(), testConfig(""))
	assert.NoError(t, err)
	assert.NotNil(t, counter)
	assert.NotNil(t, hist)
}

func TestTraceMiddleware(t *testing.T) {
	cfg := testConfig("")
	require.NoError(t, initMeters(t.Context(), cfg))

	tests := []struct {
		name       string
		header     http.Header
		status     int
		wantStatus int
	}{
		{
			name:       "implicit OK",
			wantStatus: http.StatusOK,
		},
		{
			name:       "explicit status",
			status:     http.StatusTeapot,
			wantStatus: http.StatusTeapot,
		},
		{
			name:       "parent trace in headers",
			header:     http.Header{"Traceparent": {"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"}},
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range tt.header {
				req.Header[k] = v
			}
			w := httptest.NewRecorder()

			traceMiddleware(cfg, "TestOperation", next).ServeHTTP(w, req)

			assert.True(t, called)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	rec.WriteHeader(http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rec.status)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
