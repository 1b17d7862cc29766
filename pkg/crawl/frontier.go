package crawl

import (
	"container/heap"

	"site-analyzer/pkg/parse"
)

// Entry is a URL pending a visit, tagged with the depth at which it was
// discovered and the page that discovered it (provenance only, not used
// for ordering).
type Entry struct {
	URL            string // Original absolute URL (fetched as-is)
	Normalized     string // Canonical form used for deduplication
	Depth          int
	DiscoveredFrom string
}

// Frontier tracks the URLs remaining to be visited in one crawl run,
// in breadth-first order, with deduplication against URLs already visited
// or already queued. It is exclusively owned by one orchestrator instance
// and is not safe for concurrent use.
type Frontier struct {
	pending frontierHeap
	seq     int             // Insertion counter for stable order within a depth level
	queued  map[string]bool // Normalized URLs currently pending or in flight
	visited map[string]bool // Normalized URLs already fetched (successfully or not)
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		queued:  make(map[string]bool),
		visited: make(map[string]bool),
	}
	heap.Init(&f.pending)
	return f
}

// Push queues a URL at the given depth. It is a no-op returning false if
// the URL fails to normalize or is already visited or queued in this run.
func (f *Frontier) Push(rawURL string, depth int, discoveredFrom string) bool {
	normalized, _, err := parse.ParseAndNormalize(rawURL)
	if err != nil {
		return false
	}
	if f.visited[normalized] || f.queued[normalized] {
		return false
	}
	f.queued[normalized] = true
	f.seq++
	heap.Push(&f.pending, &frontierItem{
		entry: Entry{
			URL:            rawURL,
			Normalized:     normalized,
			Depth:          depth,
			DiscoveredFrom: discoveredFrom,
		},
		seq: f.seq,
	})
	return true
}

// Pop returns the next entry in breadth-first order (lowest depth first,
// discovery order within a depth level), or false when none remain.
// The entry stays in the queued set until MarkVisited, so a page linking
// back to the URL currently in flight cannot re-enqueue it. Entries that
// became visited while pending (a redirect landed on them first) are
// silently discarded.
func (f *Frontier) Pop() (Entry, bool) {
	for f.pending.Len() > 0 {
		item := heap.Pop(&f.pending).(*frontierItem)
		if f.visited[item.entry.Normalized] {
			delete(f.queued, item.entry.Normalized)
			continue
		}
		return item.entry, true
	}
	return Entry{}, false
}

// MarkVisited moves a URL into the visited set. Idempotent; unparseable
// URLs are ignored.
func (f *Frontier) MarkVisited(rawURL string) {
	normalized, _, err := parse.ParseAndNormalize(rawURL)
	if err != nil {
		return
	}
	delete(f.queued, normalized)
	f.visited[normalized] = true
}

// Visited reports whether a URL has been fetched in this run.
func (f *Frontier) Visited(rawURL string) bool {
	normalized, _, err := parse.ParseAndNormalize(rawURL)
	if err != nil {
		return false
	}
	return f.visited[normalized]
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	return f.pending.Len()
}

// frontierItem orders entries by (depth, insertion sequence), which yields
// breadth-first traversal.
type frontierItem struct {
	entry Entry
	seq   int
	index int
}

type frontierHeap []*frontierItem

func (h frontierHeap) Len() int { return len(h) }

func (h frontierHeap) Less(i, j int) bool {
	if h[i].entry.Depth != h[j].entry.Depth {
		return h[i].entry.Depth < h[j].entry.Depth
	}
	return h[i].seq < h[j].seq
}

func (h frontierHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *frontierHeap) Push(x any) {
	item := x.(*frontierItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *frontierHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}
