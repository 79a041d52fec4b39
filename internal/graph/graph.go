// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph builds a directed citation graph over canonical paper keys
// and answers basic structural queries: degree, most-cited, connected
// components. Nodes are named by the same key scheme the merger uses, so
// a paper known through different sources resolves to one node.
package graph

import (
	"sort"
	"sync"

	"github.com/pdiddy/literature-engine/internal/merge"
	"github.com/pdiddy/literature-engine/pkg/types"
)

// Key returns the graph node key for a record: normalized DOI when present,
// else the title+first-author key.
func Key(p *types.PaperRecord) string {
	return merge.Key(p)
}

// Builder accumulates records and citation edges. All methods are safe for
// concurrent use; queries return copies, so a snapshot is never corrupted
// by additions happening alongside it.
type Builder struct {
	mu    sync.RWMutex
	nodes map[string]types.PaperRecord
	// edges maps citing key to the set of cited keys.
	edges map[string]map[string]struct{}
}

// NewBuilder returns an empty citation graph builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]types.PaperRecord),
		edges: make(map[string]map[string]struct{}),
	}
}

// AddRecord inserts one record and returns its node key. A record already
// present under the same key is replaced when the new one is richer;
// placeholder nodes are always upgraded. Records with no identity are
// skipped and return "".
func (b *Builder) AddRecord(rec types.PaperRecord) string {
	key := merge.Key(&rec)
	if key == "" {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.nodes[key]; !ok || rec.Richness() > existing.Richness() {
		b.nodes[key] = rec
	}
	return key
}

// AddRecords inserts records in order and returns their node keys
// (identity-free records contribute an empty key).
func (b *Builder) AddRecords(records []types.PaperRecord) []string {
	keys := make([]string, len(records))
	for i, rec := range records {
		keys[i] = b.AddRecord(rec)
	}
	return keys
}

// AddCitation records a directed edge from the citing paper to the cited
// one. Unknown endpoints get placeholder nodes so the graph never holds a
// dangling edge. Self-citations and empty keys are silently ignored;
// duplicate edges collapse.
func (b *Builder) AddCitation(citingKey, citedKey string) {
	if citingKey == "" || citedKey == "" || citingKey == citedKey {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range []string{citingKey, citedKey} {
		if _, ok := b.nodes[key]; !ok {
			b.nodes[key] = types.PaperRecord{Title: key}
		}
	}
	set, ok := b.edges[citingKey]
	if !ok {
		set = make(map[string]struct{})
		b.edges[citingKey] = set
	}
	set[citedKey] = struct{}{}
}

// Len returns the node and edge counts.
func (b *Builder) Len() (nodes, edges int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, set := range b.edges {
		edges += len(set)
	}
	return len(b.nodes), edges
}

// Record returns the stored record for a key.
func (b *Builder) Record(key string) (types.PaperRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.nodes[key]
	return rec, ok
}

// InDegree returns how many papers in the graph cite the given key.
func (b *Builder) InDegree(key string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, set := range b.edges {
		if _, ok := set[key]; ok {
			n++
		}
	}
	return n
}

// OutDegree returns how many papers the given key cites.
func (b *Builder) OutDegree(key string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.edges[key])
}

// MostCited returns up to n records ordered by in-graph citation count
// descending, ties broken by key for a deterministic sequence.
func (b *Builder) MostCited(n int) []types.PaperRecord {
	b.mu.RLock()
	indegree := make(map[string]int, len(b.nodes))
	for key := range b.nodes {
		indegree[key] = 0
	}
	for _, set := range b.edges {
		for cited := range set {
			indegree[cited]++
		}
	}
	b.mu.RUnlock()

	keys := make([]string, 0, len(indegree))
	for key := range indegree {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if indegree[keys[i]] != indegree[keys[j]] {
			return indegree[keys[i]] > indegree[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	out := make([]types.PaperRecord, 0, len(keys))
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, key := range keys {
		out = append(out, b.nodes[key])
	}
	return out
}

// ConnectedComponents returns the weakly connected components as sorted
// key slices, largest component first (ties by smallest member key).
func (b *Builder) ConnectedComponents() [][]string {
	b.mu.RLock()
	// Snapshot an undirected adjacency view.
	adj := make(map[string][]string, len(b.nodes))
	for key := range b.nodes {
		adj[key] = nil
	}
	for citing, set := range b.edges {
		for cited := range set {
			adj[citing] = append(adj[citing], cited)
			adj[cited] = append(adj[cited], citing)
		}
	}
	b.mu.RUnlock()

	visited := make(map[string]bool, len(adj))
	var components [][]string
	for key := range adj {
		if visited[key] {
			continue
		}
		var comp []string
		stack := []string{key}
		visited[key] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, cur)
			for _, next := range adj[cur] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Strings(comp)
		components = append(components, comp)
	}

	sort.Slice(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})
	return components
}
