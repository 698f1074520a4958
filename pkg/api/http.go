// Package api assembles the HTTP surface: versioned JSON endpoints, the
// streaming chat endpoint and the subscription feed.
package api

import (
	"net/http"

	"charchat/pkg/api/handlers"
	"charchat/pkg/relay"
	"charchat/pkg/telemetry"

	"github.com/gorilla/mux"
)

// Router builds the application router. The relay is injected by the app
// so handlers never construct upstream clients themselves.
func Router(rl *relay.Relay) *mux.Router {
	r := mux.NewRouter()
	r.Use(telemetry.Middleware)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterChat(v1, rl)
	handlers.RegisterChats(v1)
	handlers.RegisterMessages(v1)
	handlers.RegisterCharacters(v1)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})
	return r
}
