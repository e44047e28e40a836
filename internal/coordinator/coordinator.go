// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package coordinator fans out one API worker per enabled source in
// parallel and collects their results in whatever order they complete
// (component D, spec §4.D).
package coordinator

import (
	"context"
	"sync"

	"github.com/allium-project/allium/internal/obslog"
	"github.com/allium-project/allium/internal/source"
)

// SourceResult pairs a source name with the body FetchWithCacheFallback
// produced for it (possibly nil if nothing usable was available).
type SourceResult struct {
	Name  string
	Body  []byte
	Fresh bool
}

// Run fans out workers, one goroutine per source, and blocks until every
// worker has returned. It does not reorder results; callers tolerate any
// completion order (spec §5, "the store builder tolerates this").
//
// Cancelling ctx propagates into every in-flight FetchWithCacheFallback
// call so outstanding fetches observe cancellation before their own
// deadline (spec §4.D "Cancellation").
func Run(ctx context.Context, workers []*source.Worker, logger obslog.Logger) []SourceResult {
	if logger == nil {
		logger = obslog.NoOpLogger{}
	}

	results := make([]SourceResult, len(workers))
	var wg sync.WaitGroup
	wg.Add(len(workers))

	for i, w := range workers {
		go func(i int, w *source.Worker) {
			defer wg.Done()
			logger.Info("source starting", "api", w.Name())
			res := w.FetchWithCacheFallback(ctx)
			results[i] = SourceResult{Name: w.Name(), Body: res.Body, Fresh: res.Fresh}
		}(i, w)
	}

	wg.Wait()
	return results
}
