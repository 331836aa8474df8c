package quest

import (
	"encoding/json"
	"reflect"
)

// Ref is the wire-form placeholder for a nested quest context: it replaces
// a *Context argument once the context's own message has been dispatched.
// It marshals to {"__ref__": "<id>"}, the reference marker from the wire
// schema.
type Ref struct {
	ID string
}

type refWire struct {
	ID string `json:"__ref__"`
}

// MarshalJSON implements json.Marshaler, producing the stable {"__ref__": id}
// envelope used by both the dispatcher and the worker.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(refWire{ID: r.ID})
}

// UnmarshalJSON implements json.Unmarshaler for the {"__ref__": id} envelope.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var wire refWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.ID = wire.ID
	return nil
}

// AsRef reports whether v is a reference marker, in either of the two shapes
// it can take: a quest.Ref (when a context never left the process, e.g. the
// in-memory queue) or a map[string]any{"__ref__": id} (after a round trip
// through a JSON-based transport). It returns the referenced task id.
func AsRef(v any) (string, bool) {
	switch t := v.(type) {
	case Ref:
		return t.ID, true
	case *Ref:
		if t == nil {
			return "", false
		}
		return t.ID, true
	case map[string]any:
		if len(t) != 1 {
			return "", false
		}
		if id, ok := t["__ref__"].(string); ok {
			return id, true
		}
	}
	return "", false
}

// contextHolder is implemented by anything that carries an underlying
// *Context: a bare *Context, or a Typed[T] produced by Cast. Resolving
// through this interface rather than a type switch keeps Cast's type
// parameter purely compile-time — at runtime, Cast is identity.
type contextHolder interface {
	questContext() *Context
}

func (c *Context) questContext() *Context { return c }

// Typed is the result of Cast: a *Context tagged, at the type level only,
// with the type its eventual result will have. At runtime it behaves
// exactly like the *Context it wraps.
type Typed[T any] struct {
	*Context
}

func (t Typed[T]) questContext() *Context { return t.Context }

// Cast claims that ctx will resolve to a T. This is a type-level claim only
// — Cast performs no conversion and the returned value is the same context,
// still unevaluated, still a legal argument to another quest.
func Cast[T any](ctx *Context) Typed[T] {
	return Typed[T]{ctx}
}

// valueOf normalizes an argument into the tree the dispatcher and graph
// walker understand: a *Context reference, a []any / map[string]any
// container (walked recursively), or an opaque scalar leaf.
func valueOf(v any) any {
	if v == nil {
		return nil
	}
	if holder, ok := v.(contextHolder); ok {
		return holder.questContext()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = valueOf(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		for _, k := range rv.MapKeys() {
			out[k.String()] = valueOf(rv.MapIndex(k).Interface())
		}
		return out
	default:
		return v
	}
}

// walk applies fn to every *Context reachable (directly or nested in a
// slice/map) within v, without modifying v itself.
func walk(v any, fn func(*Context)) {
	switch t := v.(type) {
	case *Context:
		fn(t)
	case []any:
		for _, e := range t {
			walk(e, fn)
		}
	case map[string]any:
		for _, e := range t {
			walk(e, fn)
		}
	}
}

// ToWire rebuilds v for sending over a transport: every *Context is
// replaced with a Ref pointing at its task id, since by dispatch time that
// context has its own message in flight and the worker must resolve it
// from the store rather than receive it inline.
func ToWire(v any) any {
	return transform(v, func(c *Context) any {
		return Ref{ID: c.ID}
	})
}

// transform rebuilds v, replacing every *Context with the result of fn,
// preserving slice/map shape otherwise.
func transform(v any, fn func(*Context) any) any {
	switch t := v.(type) {
	case *Context:
		return fn(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = transform(e, fn)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = transform(e, fn)
		}
		return out
	default:
		return v
	}
}
