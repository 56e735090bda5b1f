package rules

import (
	"sync"

	"github.com/isle-project/aae/internal/aaeerr"
)

// Registry is a string-keyed catalog of rule implementations. Rules
// are extended by registering a new Func, never by subclassing.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns a Registry pre-populated with the built-in rule
// catalog.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.Register("average", Average)
	r.Register("dropLowest", DropLowest)
	r.Register("dropNLowest", DropNLowest)
	r.Register("binaryProportion", BinaryProportion)
	r.Register("decayedAverage", DecayedAverage)
	return r
}

// Register adds or replaces a rule under name.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup resolves a rule spec ([name, ...args]) to its Func and args.
// An empty spec or an unregistered name is a fatal error for the call.
func (r *Registry) Lookup(ruleSpec []string) (Func, []string, error) {
	if len(ruleSpec) == 0 {
		return nil, nil, aaeerr.Invalidf("rule must name at least a rule identifier")
	}
	name := ruleSpec[0]
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, aaeerr.UnknownRulef("rule %q is not registered", name)
	}
	return fn, ruleSpec[1:], nil
}
