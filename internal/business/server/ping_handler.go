package server

import (
	"net/http"

	slogctx "github.com/veqryn/slog-context"
)

func pingHandler(w http.ResponseWriter, r *http.Request) {
	slogctx.Debug(r.Context(), "Answering ping")

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{ \"result\": \"ping\" }"))
}
