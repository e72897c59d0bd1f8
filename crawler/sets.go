package crawler

import (
	"slices"
	"sync"
)

// VisitedSet is a thread-safe set of page URLs already dispatched for
// crawling.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{
		seen: make(map[string]struct{}),
	}
}

// MarkIfNotVisited inserts url and reports whether this call inserted it.
// Of any number of concurrent callers for the same url exactly one gets true.
func (vs *VisitedSet) MarkIfNotVisited(url string) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if _, ok := vs.seen[url]; ok {
		return false
	}
	vs.seen[url] = struct{}{}
	return true
}

func (vs *VisitedSet) Contains(url string) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	_, ok := vs.seen[url]
	return ok
}

func (vs *VisitedSet) Len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.seen)
}

// URLs returns a sorted snapshot of the set.
func (vs *VisitedSet) URLs() []string {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return sortedKeys(vs.seen)
}

// DocumentSet is a thread-safe, append-only set of discovered document URLs.
type DocumentSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

func NewDocumentSet() *DocumentSet {
	return &DocumentSet{
		urls: make(map[string]struct{}),
	}
}

// Add inserts url and reports whether it was new. Duplicates collapse.
func (ds *DocumentSet) Add(url string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if _, ok := ds.urls[url]; ok {
		return false
	}
	ds.urls[url] = struct{}{}
	return true
}

func (ds *DocumentSet) Len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.urls)
}

// URLs returns a sorted snapshot of the set.
func (ds *DocumentSet) URLs() []string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return sortedKeys(ds.urls)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
