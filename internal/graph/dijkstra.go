package graph

import (
	"container/heap"
	"fmt"

	"riskroute/internal/model"
)

// ShortestPath runs Dijkstra on edge length and returns the node sequence
// from -> to (inclusive) and its length.
func (g *Graph) ShortestPath(from, to model.NodeID) ([]model.NodeID, float64, error) {
	if !g.Has(from) {
		return nil, 0, fmt.Errorf("%w %d", ErrUnknownNode, from)
	}
	if !g.Has(to) {
		return nil, 0, fmt.Errorf("%w %d", ErrUnknownNode, to)
	}
	if from == to {
		return []model.NodeID{from}, 0, nil
	}

	dist := map[model.NodeID]float64{from: 0}
	prev := map[model.NodeID]model.NodeID{}
	done := map[model.NodeID]bool{}

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{node: from, priority: 0})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem).node
		if done[cur] {
			continue
		}
		if cur == to {
			return reconstructPath(prev, from, to), dist[to], nil
		}
		done[cur] = true
		for _, e := range g.adj[cur] {
			if done[e.To] {
				continue
			}
			alt := dist[cur] + e.Length
			if old, ok := dist[e.To]; !ok || alt < old {
				dist[e.To] = alt
				prev[e.To] = cur
				heap.Push(pq, &pqItem{node: e.To, priority: alt})
			}
		}
	}
	return nil, 0, fmt.Errorf("%d -> %d: %w", from, to, ErrNoPath)
}

func reconstructPath(prev map[model.NodeID]model.NodeID, from, to model.NodeID) []model.NodeID {
	path := []model.NodeID{to}
	for cur := to; cur != from; {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pqItem struct {
	node     model.NodeID
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x any) { *pq = append(*pq, x.(*pqItem)) }

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
