package native

import (
	"sync"
)

// Linker keeps the libraries linked into one assembly. Symbols are looked
// up in link order.
type Linker struct {
	resolver Resolver

	mu    sync.RWMutex
	byKey map[string]Library
	libs  []Library
}

// NewLinker creates a linker over resolver.
func NewLinker(resolver Resolver) *Linker {
	return &Linker{resolver: resolver, byKey: make(map[string]Library, 4)}
}

// Link opens the library once; later calls with the same name return the
// library opened first. The boolean reports whether this call opened it.
func (l *Linker) Link(name string) (Library, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lib, ok := l.byKey[name]; ok {
		return lib, false, nil
	}
	lib, err := l.resolver.Open(name)
	if err != nil {
		return nil, false, err
	}
	l.byKey[name] = lib
	l.libs = append(l.libs, lib)
	return lib, true, nil
}

// Lookup finds symbol in the linked libraries.
func (l *Linker) Lookup(symbol string) (Callable, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, lib := range l.libs {
		if fn, ok := l.resolver.Resolve(lib, symbol); ok {
			return fn, true
		}
	}
	return nil, false
}

// Has reports whether symbol resolves.
func (l *Linker) Has(symbol string) bool {
	_, ok := l.Lookup(symbol)
	return ok
}

// Libraries returns the names of linked libraries in link order.
func (l *Linker) Libraries() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.libs))
	for i, lib := range l.libs {
		out[i] = lib.Name()
	}
	return out
}
