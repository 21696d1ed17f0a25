package pathfind

import (
	"container/heap"

	"github.com/copyleftdev/icemaze/internal/maze"
)

// node is a search state. Every tile crossed during an ice slide gets its
// own node so the parent chain reproduces the full route.
type node struct {
	point  maze.Point
	cost   int
	h      int
	parent *node
	seq    uint64 // insertion order, for tie-breaking
	index  int    // for heap.Interface
}

func (n *node) priority() int { return n.cost + n.h }

func (n *node) route() maze.Route {
	length := 0
	for cur := n; cur != nil; cur = cur.parent {
		length++
	}
	r := make(maze.Route, length)
	for cur := n; cur != nil; cur = cur.parent {
		length--
		r[length] = cur.point
	}
	return r
}

// nodeHeap orders by cost+heuristic, then by insertion order, so equal
// priorities pop first-in first-out.
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if pi, pj := h[i].priority(), h[j].priority(); pi != pj {
		return pi < pj
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *nodeHeap) Push(x interface{}) {
	item := x.(*node)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// frontier is the open list. It remembers the cheapest cost queued for each
// point so dominated arrivals can be rejected without scanning the heap.
type frontier struct {
	heap nodeHeap
	open map[maze.Point]int
	seq  uint64
}

func newFrontier() *frontier {
	return &frontier{open: make(map[maze.Point]int)}
}

func (f *frontier) Len() int { return f.heap.Len() }

func (f *frontier) push(n *node) {
	n.seq = f.seq
	f.seq++
	if c, ok := f.open[n.point]; !ok || n.cost < c {
		f.open[n.point] = n.cost
	}
	heap.Push(&f.heap, n)
}

func (f *frontier) pop() *node {
	n := heap.Pop(&f.heap).(*node)
	delete(f.open, n.point)
	return n
}

// holds reports whether a node at p with cost at most cost is queued.
func (f *frontier) holds(p maze.Point, cost int) bool {
	c, ok := f.open[p]
	return ok && c <= cost
}
