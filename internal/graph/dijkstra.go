package graph

import (
	"container/heap"
	"math"
)

// ShortestPath runs Dijkstra from origin to dest over edge weights and returns
// the nodes along the cheapest path and its total cost. The boolean is false
// when dest is unreachable or either endpoint is unknown.
//
// The queue is ordered by (cost, node ID) and relaxation is strict, so the
// same graph always yields the same path when several paths tie.
func (g *Graph) ShortestPath(origin, dest int64) ([]Node, float64, bool) {
	if _, ok := g.nodes[origin]; !ok {
		return nil, 0, false
	}
	if _, ok := g.nodes[dest]; !ok {
		return nil, 0, false
	}
	if origin == dest {
		return []Node{*g.nodes[origin]}, 0, true
	}

	dist := map[int64]float64{origin: 0}
	prev := make(map[int64]int64)
	done := make(map[int64]bool)

	pq := &priorityQueue{{nodeID: origin, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pqItem)
		if done[item.nodeID] {
			continue
		}
		done[item.nodeID] = true
		if item.nodeID == dest {
			return g.walkBack(prev, origin, dest), item.dist, true
		}
		for _, idx := range g.adj[item.nodeID] {
			e := g.edges[idx]
			if !passable(e.Weight) {
				continue
			}
			next := e.To
			if next == item.nodeID {
				next = e.From
			}
			if done[next] {
				continue
			}
			nd := item.dist + e.Weight
			if d, ok := dist[next]; !ok || nd < d {
				dist[next] = nd
				prev[next] = item.nodeID
				heap.Push(pq, pqItem{nodeID: next, dist: nd})
			}
		}
	}
	return nil, 0, false
}

func (g *Graph) walkBack(prev map[int64]int64, origin, dest int64) []Node {
	ids := []int64{dest}
	for cur := dest; cur != origin; {
		cur = prev[cur]
		ids = append(ids, cur)
	}
	path := make([]Node, len(ids))
	for i, id := range ids {
		path[len(ids)-1-i] = *g.nodes[id]
	}
	return path
}

// passable rejects weights Dijkstra cannot handle.
func passable(w float64) bool {
	return w >= 0 && !math.IsNaN(w) && !math.IsInf(w, 0)
}

type pqItem struct {
	nodeID int64
	dist   float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist == pq[j].dist {
		return pq[i].nodeID < pq[j].nodeID
	}
	return pq[i].dist < pq[j].dist
}
func (pq priorityQueue) Swap(i, j int)  { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
