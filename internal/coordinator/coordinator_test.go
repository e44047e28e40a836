// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allium-project/allium/internal/cachestore"
	"github.com/allium-project/allium/internal/fetch"
	"github.com/allium-project/allium/internal/source"
)

func newWorker(t *testing.T, name, url string) *source.Worker {
	t.Helper()
	cache, err := cachestore.New(t.TempDir(), nil)
	require.NoError(t, err)
	cfg := source.APIConfig{
		Name: name, URL: url,
		CacheMaxAge: time.Hour, TimeoutFreshCache: time.Second, TimeoutStaleCache: time.Second,
		CountField: "relays",
	}
	return source.NewWorker(cfg, fetch.NewClient(), cache, nil)
}

func TestRunCollectsAllResultsRegardlessOfOrder(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.Write([]byte(`{"relays":[1]}`))
	}))
	defer slow.Close()
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"relays":[2]}`))
	}))
	defer fast.Close()

	workers := []*source.Worker{
		newWorker(t, "onionoo_details", slow.URL),
		newWorker(t, "onionoo_uptime", fast.URL),
	}

	results := Run(context.Background(), workers, nil)
	require.Len(t, results, 2)

	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
		assert.True(t, r.Fresh)
	}
	assert.True(t, names["onionoo_details"])
	assert.True(t, names["onionoo_uptime"])
}

func TestRunHandlesEmptyWorkerSet(t *testing.T) {
	results := Run(context.Background(), nil, nil)
	assert.Empty(t, results)
}

func TestRunPropagatesCancellation(t *testing.T) {
	blocking := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer blocking.Close()

	ctx, cancel := context.WithCancel(context.Background())
	workers := []*source.Worker{newWorker(t, "onionoo_details", blocking.URL)}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	results := Run(ctx, workers, nil)
	require.Len(t, results, 1)
	assert.False(t, results[0].Fresh)
}
