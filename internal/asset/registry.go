// Package asset is the keyed resource store the animation machines read from,
// populated from an embedded clip manifest.
package asset

import "sync"

// Registry stores opaque assets under string keys
type Registry struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]any)}
}

// Put stores v under key, replacing any previous value
func (r *Registry) Put(key string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = v
}

// Get returns the asset stored under key
func (r *Registry) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[key]
	return v, ok
}

// Node is a showable scene object such as an armature or scope overlay.
type Node struct {
	Name    string
	visible bool
}

// NewNode creates a hidden node.
func NewNode(name string) *Node {
	return &Node{Name: name}
}

func (n *Node) SetVisible(visible bool) { n.visible = visible }
func (n *Node) Visible() bool { return n.visible }
