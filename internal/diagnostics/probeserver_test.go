// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package diagnostics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allium-project/allium/internal/relay"
	"github.com/allium-project/allium/internal/render"
)

const probeServerDetailsBody = `{"version":"9.0","relays":[
  {"fingerprint":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa","nickname":"RelayOne","running":true,"flags":["Running","Valid"]}
]}`

func TestHandleHealthzReturnsOK(t *testing.T) {
	store, ok := relay.BuildStore([]byte(probeServerDetailsBody), relay.BandwidthUnitBits, nil)
	require.True(t, ok)
	renderer := render.New(store, nil, nil, nil)
	server := NewProbeServer(renderer)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleDiagnosticsKnownFingerprint(t *testing.T) {
	store, ok := relay.BuildStore([]byte(probeServerDetailsBody), relay.BandwidthUnitBits, nil)
	require.True(t, ok)
	renderer := render.New(store, nil, nil, nil)
	server := NewProbeServer(renderer)

	req := httptest.NewRequest(http.MethodGet, "/diagnostics/AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleDiagnosticsUnknownFingerprintReturns404(t *testing.T) {
	store, ok := relay.BuildStore([]byte(probeServerDetailsBody), relay.BandwidthUnitBits, nil)
	require.True(t, ok)
	renderer := render.New(store, nil, nil, nil)
	server := NewProbeServer(renderer)

	req := httptest.NewRequest(http.MethodGet, "/diagnostics/not-valid", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
