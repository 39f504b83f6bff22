package search

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vantagegraph/vantage/backend/pkg/graphiti"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
)

// GraphSearch runs the query, and any variants, against the graph store's
// semantic search and returns the union of facts in probe order. Variants
// run concurrently. A failing probe contributes nothing; the call itself
// never fails.
func (e *Engine) GraphSearch(ctx context.Context, query string, variants ...string) ([]Result, error) {
	probes := append([]string{query}, variants...)

	resultsPerProbe := make([][]graphiti.Fact, len(probes))
	var mu sync.Mutex

	eg, ectx := errgroup.WithContext(ctx)
	for i, probe := range probes {
		idx, p := i, probe
		eg.Go(func() error {
			facts, err := e.graph.SemanticSearch(ectx, p, graphiti.WithMaxFacts(10))
			if err != nil {
				logger.Warn("[Search] Graph probe failed", "probe", p, "err", err)
				return nil
			}
			mu.Lock()
			resultsPerProbe[idx] = facts
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return []Result{}, nil
	}

	seen := make(map[string]bool)
	out := make([]Result, 0)
	for _, facts := range resultsPerProbe {
		for _, f := range facts {
			if f.Fact == "" || seen[f.Fact] {
				continue
			}
			seen[f.Fact] = true
			out = append(out, factToResult(f, MethodGraphSemantic))
		}
	}
	return out, nil
}
