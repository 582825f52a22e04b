package cassette

import (
	"sort"

	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/platform/fm7"
	"github.com/cwbudde/cassette/platform/jr200"
	"github.com/cwbudde/cassette/platform/mb6885"
	"github.com/cwbudde/cassette/platform/pc8001"
	"github.com/cwbudde/cassette/tapeerr"
)

// Registry resolves platform identifiers to block protocols.
type Registry struct {
	protocols map[string]block.Protocol
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{protocols: make(map[string]block.Protocol)}
}

// DefaultRegistry returns a registry holding every supported platform.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(fm7.New())
	r.Register(jr200.New())
	r.Register(pc8001.New())

	mb, err := mb6885.New(mb6885.DefaultBaud)
	if err != nil {
		panic(err)
	}

	r.Register(mb)

	return r
}

// Register adds p under p.Name(), replacing any protocol of the same name.
func (r *Registry) Register(p block.Protocol) {
	if r == nil || p == nil {
		return
	}

	if r.protocols == nil {
		r.protocols = make(map[string]block.Protocol)
	}

	r.protocols[p.Name()] = p
}

// Lookup returns the protocol registered as name.
func (r *Registry) Lookup(name string) (block.Protocol, error) {
	if r != nil {
		if p, ok := r.protocols[name]; ok {
			return p, nil
		}
	}

	return nil, tapeerr.Unsupported("cassette: lookup", "unknown platform %q", name)
}

// Names returns the registered platform identifiers in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	names := make([]string, 0, len(r.protocols))
	for name := range r.protocols {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
