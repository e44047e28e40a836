// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package diagnostics

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/allium-project/allium/internal/render"
)

// ProbeServer exposes the optional debug endpoints gated by
// --debug-listen (SPEC_FULL §3 domain-stack table): a liveness check and a
// per-relay diagnostics lookup backed by the renderer.
type ProbeServer struct {
	renderer *render.Renderer
	router   *mux.Router
}

// NewProbeServer builds the router; serve Handler() from an http.Server to
// actually bind a port.
func NewProbeServer(renderer *render.Renderer) *ProbeServer {
	s := &ProbeServer{renderer: renderer, router: mux.NewRouter()}
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/diagnostics/{fingerprint}", s.handleDiagnostics).Methods(http.MethodGet)
	return s
}

// Handler returns the server's http.Handler for use with http.Server.
func (s *ProbeServer) Handler() http.Handler {
	return s.router
}

func (s *ProbeServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *ProbeServer) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	fingerprint := mux.Vars(r)["fingerprint"]

	diag, ok := s.renderer.RelayDiagnostics(fingerprint)
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown or invalid fingerprint"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(diag)
}
