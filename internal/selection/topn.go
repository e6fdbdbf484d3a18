package selection

import (
	"container/heap"

	"github.com/wonny/toprank/internal/contracts"
)

// candidate is a metrics row plus its position in the request
type candidate struct {
	metrics contracts.PerformanceMetrics
	index   int
}

// better orders by Sharpe descending, then by input order
func better(a, b candidate) bool {
	if a.metrics.SharpeRatio != b.metrics.SharpeRatio {
		return a.metrics.SharpeRatio > b.metrics.SharpeRatio
	}
	return a.index < b.index
}

// worstFirst is a min-heap whose root is the weakest kept candidate
type worstFirst []candidate

func (h worstFirst) Len() int            { return len(h) }
func (h worstFirst) Less(i, j int) bool  { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *worstFirst) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// topN keeps the n best candidates and returns them best first
func topN(candidates []candidate, n int) []candidate {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}

	h := make(worstFirst, 0, n+1)
	for _, c := range candidates {
		if len(h) < n {
			heap.Push(&h, c)
			continue
		}
		if better(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	out := make([]candidate, len(h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(candidate)
	}
	return out
}
