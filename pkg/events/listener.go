package events

import (
	"fmt"
	"reflect"
)

// Listener receives events of the types it is registered for.
//
// The router identifies listeners by interface value, so a Listener must be
// comparable. Pointer receivers are the usual choice; Func returns one.
type Listener interface {
	HandleEvent(Event)
}

// funcListener gives a plain function a stable pointer identity.
type funcListener struct {
	fn func(Event)
}

func (f *funcListener) HandleEvent(e Event) {
	f.fn(e)
}

func (f *funcListener) String() string {
	return fmt.Sprintf("func(%p)", f)
}

// Func wraps fn in a Listener. Each call returns a distinct listener, so
// keep the result to unregister it later.
func Func(fn func(Event)) Listener {
	if fn == nil {
		return nil
	}
	return &funcListener{fn: fn}
}

// typedListener decodes the payload before handing it to fn.
type typedListener[T any] struct {
	fn    func(Event, T)
	onErr func(Event, error)
}

func (l *typedListener[T]) HandleEvent(e Event) {
	var payload T
	if err := e.Decode(&payload); err != nil {
		if l.onErr != nil {
			l.onErr(e, err)
		}
		return
	}
	l.fn(e, payload)
}

func (l *typedListener[T]) String() string {
	var zero T
	return fmt.Sprintf("typed[%T](%p)", zero, l)
}

// Typed returns a Listener that decodes each payload into T before calling
// fn. Payloads that do not decode are passed to onErr, which may be nil.
func Typed[T any](fn func(Event, T), onErr func(Event, error)) Listener {
	if fn == nil {
		return nil
	}
	return &typedListener[T]{fn: fn, onErr: onErr}
}

// validListener reports whether l can be stored in a listener set.
func validListener(l Listener) bool {
	if l == nil {
		return false
	}
	v := reflect.ValueOf(l)
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Func || v.Kind() == reflect.Map) && v.IsNil() {
		return false
	}
	return v.Comparable()
}

// listenerName is used in logs and ListenerError.
func listenerName(l Listener) string {
	if s, ok := l.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", l)
}
