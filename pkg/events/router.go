package events

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

// Policy decides which event types a Router accepts.
type Policy int

const (
	// PolicyAutoDeclare declares a type the first time anything registers
	// for it. Every named type is routable.
	PolicyAutoDeclare Policy = iota

	// PolicyAllowList only accepts types passed to Declare or WithDeclared.
	PolicyAllowList
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case PolicyAutoDeclare:
		return "auto"
	case PolicyAllowList:
		return "allow-list"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "auto", "auto-declare":
		return PolicyAutoDeclare, nil
	case "allow-list", "allowlist", "strict":
		return PolicyAllowList, nil
	default:
		return PolicyAutoDeclare, errors.NewValidationError("events.policy", s, "expected auto or allow-list")
	}
}

// DeclareHook is called once for every type that becomes declared.
type DeclareHook func(Type)

// FailureHandler receives listener failures after they are logged.
type FailureHandler func(Event, error)

// Router keeps a listener set per event type and fans events out to it.
// It is safe for concurrent use. Listeners run outside the router lock, so
// a listener may register or unregister listeners itself.
type Router struct {
	mu        sync.RWMutex
	listeners map[Type]map[Listener]struct{}
	declared  map[Type]struct{}
	onDeclare []DeclareHook

	policy    Policy
	logger    *zerolog.Logger
	onFailure FailureHandler
}

// Option configures a Router.
type Option func(*Router)

// WithPolicy sets the type policy.
func WithPolicy(p Policy) Option {
	return func(r *Router) {
		r.policy = p
	}
}

// WithLogger sets the logger used for listener failures.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFailureHandler sets a handler that observes listener failures.
func WithFailureHandler(fn FailureHandler) Option {
	return func(r *Router) {
		r.onFailure = fn
	}
}

// WithDeclared declares types up front.
func WithDeclared(types ...Type) Option {
	return func(r *Router) {
		for _, t := range types {
			if t != "" {
				r.declared[t] = struct{}{}
			}
		}
	}
}

// NewRouter creates a Router. Without options it auto-declares types and
// has Connected and ScanUpdate declared.
func NewRouter(opts ...Option) *Router {
	nop := zerolog.Nop()
	r := &Router{
		listeners: make(map[Type]map[Listener]struct{}),
		declared:  map[Type]struct{}{Connected: {}, ScanUpdate: {}},
		logger:    &nop,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the router's type policy.
func (r *Router) Policy() Policy {
	return r.policy
}

// OnDeclare registers a hook called for each newly declared type.
func (r *Router) OnDeclare(fn DeclareHook) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDeclare = append(r.onDeclare, fn)
}

// Declare marks types as routable.
func (r *Router) Declare(types ...Type) {
	var fresh []Type
	r.mu.Lock()
	for _, t := range types {
		if t == "" {
			continue
		}
		if _, ok := r.declared[t]; !ok {
			r.declared[t] = struct{}{}
			fresh = append(fresh, t)
		}
	}
	hooks := append([]DeclareHook(nil), r.onDeclare...)
	r.mu.Unlock()

	r.notifyDeclared(hooks, fresh)
}

// Routable reports whether events of type t are delivered.
func (r *Router) Routable(t Type) bool {
	if t == "" {
		return false
	}
	if r.policy == PolicyAutoDeclare {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.declared[t]
	return ok
}

// Types returns the declared types in sorted order.
func (r *Router) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, 0, len(r.declared))
	for t := range r.declared {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Register adds l to the listener set for t. Registering the same listener
// twice has no additional effect.
func (r *Router) Register(t Type, l Listener) error {
	if t == "" {
		return errors.NewValidationError("type", t, "event type is empty")
	}
	if !validListener(l) {
		return errors.ErrInvalidListener
	}

	var fresh []Type
	r.mu.Lock()
	if _, ok := r.declared[t]; !ok {
		if r.policy == PolicyAllowList {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", errors.ErrUndeclaredType, t)
		}
		r.declared[t] = struct{}{}
		fresh = append(fresh, t)
	}
	set, ok := r.listeners[t]
	if !ok {
		set = make(map[Listener]struct{})
		r.listeners[t] = set
	}
	set[l] = struct{}{}
	hooks := append([]DeclareHook(nil), r.onDeclare...)
	r.mu.Unlock()

	r.notifyDeclared(hooks, fresh)
	return nil
}

// Unregister removes l from the set for t. Unknown listeners are ignored.
func (r *Router) Unregister(t Type, l Listener) {
	if !validListener(l) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.listeners[t]
	if !ok {
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(r.listeners, t)
	}
}

// ListenerCount returns the number of listeners registered for t.
func (r *Router) ListenerCount(t Type) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[t])
}

// Dispatch delivers e to every listener registered for e.Type and returns
// the number of listeners that returned normally. Delivery order is
// unspecified. A panicking listener is reported and skipped.
func (r *Router) Dispatch(e Event) int {
	r.mu.RLock()
	set := r.listeners[e.Type]
	snapshot := make([]Listener, 0, len(set))
	for l := range set {
		snapshot = append(snapshot, l)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, l := range snapshot {
		if err := r.deliver(l, e); err != nil {
			r.logger.Error().
				Err(err).
				Str("event_type", string(e.Type)).
				Str("listener", listenerName(l)).
				Msg("Listener failed")
			if r.onFailure != nil {
				r.onFailure(e, err)
			}
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Router) deliver(l Listener, e Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var cause error
			if recErr, ok := rec.(error); ok {
				cause = recErr
			}
			err = errors.NewListenerError(string(e.Type), listenerName(l), rec, cause)
		}
	}()
	l.HandleEvent(e)
	return nil
}

func (r *Router) notifyDeclared(hooks []DeclareHook, types []Type) {
	for _, t := range types {
		r.logger.Debug().Str("event_type", string(t)).Msg("Declared event type")
		for _, fn := range hooks {
			fn(t)
		}
	}
}
