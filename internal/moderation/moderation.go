// Package moderation decides which fetched notifications are hidden from the feed.
package moderation

import (
	"slices"
	"sync"

	"github.com/garrettladley/bnotif/internal/client/bsky"
)

// Options is a snapshot of the viewer's moderation preferences.
type Options struct {
	MutedActors   map[string]struct{}
	BlockedActors map[string]struct{}
	// HiddenLabels are label values that hide content outright (e.g. "!hide").
	HiddenLabels []string
}

func NewOptions(muted, blocked, hiddenLabels []string) Options {
	return Options{
		MutedActors:   toSet(muted),
		BlockedActors: toSet(blocked),
		HiddenLabels:  slices.Clone(hiddenLabels),
	}
}

// ShouldFilter reports whether n must be dropped, and why.
func (o Options) ShouldFilter(n bsky.Notification) (bool, string) {
	if _, ok := o.BlockedActors[n.Author.DID]; ok {
		return true, "blocked"
	}
	if _, ok := o.MutedActors[n.Author.DID]; ok {
		return true, "muted"
	}
	if o.hidden(n.Labels) || o.hidden(n.Author.Labels) {
		return true, "label"
	}
	return false, ""
}

func (o Options) hidden(labels []bsky.Label) bool {
	for _, l := range labels {
		if l.Neg {
			continue
		}
		if slices.Contains(o.HiddenLabels, l.Val) {
			return true
		}
	}
	return false
}

// ThreadMutes holds the root URIs of threads the viewer muted.
type ThreadMutes struct {
	mu    sync.RWMutex
	roots map[string]struct{}
}

func NewThreadMutes(roots ...string) *ThreadMutes {
	return &ThreadMutes{roots: toSet(roots)}
}

func (m *ThreadMutes) Mute(root string) {
	m.mu.Lock()
	m.roots[root] = struct{}{}
	m.mu.Unlock()
}

func (m *ThreadMutes) Unmute(root string) {
	m.mu.Lock()
	delete(m.roots, root)
	m.mu.Unlock()
}

func (m *ThreadMutes) IsMuted(root string) bool {
	if m == nil || root == "" {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.roots[root]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
