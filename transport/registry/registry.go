// Package registry lets binding packages plug themselves into a binary.
//
// A binding registers a Plugin from init(); a binary blank-imports the
// bindings it supports and calls Flags once on its flag set. The user then
// picks one with --binding and configures it with that binding's own flags:
//
//	sel := registry.Flags(fs, "native")
//	_ = fs.Parse(args)
//	b, err := sel.Open()
package registry

import (
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"sync"

	"xdao.co/hermes/transport"
)

// Plugin is one binding package as seen by the registry.
type Plugin struct {
	// Name is the --binding value; lower-case, no spaces.
	Name        string
	Description string

	// RegisterFlags adds the binding's own flags (conventionally prefixed
	// with its name) to fs.
	RegisterFlags func(fs *flag.FlagSet)

	// Open constructs the binding from the values parsed into those flags.
	Open func() (transport.Binding, error)
}

var (
	mu      sync.RWMutex
	plugins = map[string]Plugin{}
)

var ErrUnknownBinding = errors.New("registry: unknown binding")

func Register(p Plugin) error {
	if p.Name == "" || p.Name != strings.ToLower(p.Name) || strings.ContainsAny(p.Name, " \t=") {
		return fmt.Errorf("registry: invalid binding name %q", p.Name)
	}
	if p.RegisterFlags == nil || p.Open == nil {
		return fmt.Errorf("registry: binding %q needs both RegisterFlags and Open", p.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, dup := plugins[p.Name]; dup {
		return fmt.Errorf("registry: binding %q registered twice", p.Name)
	}
	plugins[p.Name] = p
	return nil
}

func MustRegister(p Plugin) {
	if err := Register(p); err != nil {
		panic(err)
	}
}

// List returns the registered plugins sorted by name.
func List() []Plugin {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Plugin, 0, len(plugins))
	for _, p := range plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Names() []string {
	ps := List()
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

// Usage is the help text for --binding, e.g.
// "native (binary gRPC ...) | web (gRPC-Web ...)".
func Usage() string {
	ps := List()
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.Name
		if p.Description != "" {
			parts[i] += " (" + p.Description + ")"
		}
	}
	return strings.Join(parts, " | ")
}

// Open builds the named binding from its already-parsed flags.
func Open(name string) (transport.Binding, error) {
	mu.RLock()
	p, ok := plugins[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (have: %s)", ErrUnknownBinding, name, strings.Join(Names(), ", "))
	}
	b, err := p.Open()
	if err != nil {
		return nil, fmt.Errorf("%s binding: %w", name, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%s binding: Open returned no binding", name)
	}
	return b, nil
}

// Selector is the --binding choice of one flag set.
type Selector struct {
	name string
}

// Flags registers --binding (defaulting to defaultName) and every plugin's
// flags on fs. Call it once per flag set, before Parse.
func Flags(fs *flag.FlagSet, defaultName string) *Selector {
	s := &Selector{}
	fs.StringVar(&s.name, "binding", defaultName, "Binding: "+Usage())
	for _, p := range List() {
		p.RegisterFlags(fs)
	}
	return s
}

// Name is the selected binding name; valid after fs.Parse.
func (s *Selector) Name() string { return s.name }

func (s *Selector) Open() (transport.Binding, error) { return Open(s.name) }
