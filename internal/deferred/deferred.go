// Package deferred provides a single-assignment value whose continuations
// run synchronously at the moment it settles.
//
// A standard future schedules its continuations for later. That leaves a
// gap in which other work can run between settlement and the code waiting
// on it. A Value closes that gap: whoever calls Resolve or Reject also runs
// every continuation attached so far, in attachment order, before the call
// returns. A continuation attached after settlement runs before the
// attaching call returns.
//
// Continuations never run while an internal lock is held, so they may
// attach further continuations or settle other values.
package deferred

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
)

// State is the settlement state of a Value.
type State int

const (
	// StatePending means neither Resolve nor Reject has been called.
	StatePending State = iota
	// StateFulfilled means the Value holds a result.
	StateFulfilled
	// StateRejected means the Value holds an error.
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Value is a single-assignment container. The zero value is not usable;
// construct one with New.
type Value[T any] struct {
	mu          sync.Mutex
	state       State
	value       T
	err         error
	onFulfilled []func(T)
	onRejected  []func(error)
	done        chan struct{}
}

// New returns a pending Value.
func New[T any]() *Value[T] {
	return &Value[T]{done: make(chan struct{})}
}

// NewWithExecutor returns a Value and runs exec with its settle functions
// before returning. A panic in exec rejects the value.
func NewWithExecutor[T any](exec func(resolve func(T), reject func(error))) *Value[T] {
	v := New[T]()
	var pc panics.Catcher
	pc.Try(func() {
		exec(func(x T) { v.Resolve(x) }, func(err error) { v.Reject(err) })
	})
	if r := pc.Recovered(); r != nil {
		v.Reject(errors.FromPanic(r.Value))
	}
	return v
}

// Resolved returns a Value already fulfilled with x.
func Resolved[T any](x T) *Value[T] {
	v := New[T]()
	v.Resolve(x)
	return v
}

// Rejected returns a Value already rejected with err.
func Rejected[T any](err error) *Value[T] {
	v := New[T]()
	v.Reject(err)
	return v
}

// Resolve fulfills v with x and runs the fulfillment continuations. It
// returns false if v was already settled.
func (v *Value[T]) Resolve(x T) bool {
	v.mu.Lock()
	if v.state != StatePending {
		v.mu.Unlock()
		return false
	}
	v.state = StateFulfilled
	v.value = x
	callbacks := v.onFulfilled
	v.onFulfilled, v.onRejected = nil, nil
	close(v.done)
	v.mu.Unlock()

	for _, fn := range callbacks {
		fn(x)
	}
	return true
}

// Reject rejects v with err and runs the rejection continuations. A nil
// err is replaced with a generic reason. It returns false if v was already
// settled.
func (v *Value[T]) Reject(err error) bool {
	if err == nil {
		err = errRejectedNil
	}
	v.mu.Lock()
	if v.state != StatePending {
		v.mu.Unlock()
		return false
	}
	v.state = StateRejected
	v.err = err
	callbacks := v.onRejected
	v.onFulfilled, v.onRejected = nil, nil
	close(v.done)
	v.mu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
	return true
}

var errRejectedNil = errors.New("deferred value rejected without a reason")

// Settle resolves v with x when err is nil and rejects it otherwise.
// It returns ErrAlreadySettled if v was settled before.
func (v *Value[T]) Settle(x T, err error) error {
	var ok bool
	if err != nil {
		ok = v.Reject(err)
	} else {
		ok = v.Resolve(x)
	}
	if !ok {
		return errors.ErrAlreadySettled
	}
	return nil
}

// OnFulfilled attaches fn. If v is already fulfilled, fn runs before
// OnFulfilled returns. It returns v for chaining.
func (v *Value[T]) OnFulfilled(fn func(T)) *Value[T] {
	v.mu.Lock()
	switch v.state {
	case StatePending:
		v.onFulfilled = append(v.onFulfilled, fn)
		v.mu.Unlock()
	case StateFulfilled:
		x := v.value
		v.mu.Unlock()
		fn(x)
	default:
		v.mu.Unlock()
	}
	return v
}

// OnRejected attaches fn. If v is already rejected, fn runs before
// OnRejected returns. It returns v for chaining.
func (v *Value[T]) OnRejected(fn func(error)) *Value[T] {
	v.mu.Lock()
	switch v.state {
	case StatePending:
		v.onRejected = append(v.onRejected, fn)
		v.mu.Unlock()
	case StateRejected:
		err := v.err
		v.mu.Unlock()
		fn(err)
	default:
		v.mu.Unlock()
	}
	return v
}

// State returns the current state.
func (v *Value[T]) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Result returns the settled outcome. It returns ErrNotSettled while v is
// pending.
func (v *Value[T]) Result() (T, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch v.state {
	case StateFulfilled:
		return v.value, nil
	case StateRejected:
		var zero T
		return zero, v.err
	default:
		var zero T
		return zero, errors.ErrNotSettled
	}
}

// Done returns a channel closed once v settles.
func (v *Value[T]) Done() <-chan struct{} {
	return v.done
}

// Wait blocks until v settles or ctx is done. It is for goroutines outside
// a peer loop; code on a loop attaches continuations instead.
func (v *Value[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-v.done:
		return v.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then returns a Value settled from v: with fn's result when v fulfills,
// or with v's error when it rejects. fn runs synchronously at v's
// settlement, so the derived value settles inside the same call. A panic
// in fn rejects the derived value.
func Then[T, U any](v *Value[T], fn func(T) (U, error)) *Value[U] {
	derived := New[U]()
	v.OnFulfilled(func(x T) {
		var (
			u   U
			err error
		)
		var pc panics.Catcher
		pc.Try(func() { u, err = fn(x) })
		if r := pc.Recovered(); r != nil {
			derived.Reject(errors.FromPanic(r.Value))
			return
		}
		_ = derived.Settle(u, err)
	})
	v.OnRejected(func(err error) { derived.Reject(err) })
	return derived
}

// Catch returns a Value that mirrors v's fulfillment, or is settled from
// fn's result when v rejects. A panic in fn rejects the derived value.
func Catch[T any](v *Value[T], fn func(error) (T, error)) *Value[T] {
	derived := New[T]()
	v.OnFulfilled(func(x T) { derived.Resolve(x) })
	v.OnRejected(func(cause error) {
		var (
			x   T
			err error
		)
		var pc panics.Catcher
		pc.Try(func() { x, err = fn(cause) })
		if r := pc.Recovered(); r != nil {
			derived.Reject(errors.FromPanic(r.Value))
			return
		}
		_ = derived.Settle(x, err)
	})
	return derived
}
