package workflow

import "context"

// activeKey is the context.Context key under which the currently-running
// Workflow is stashed, mirroring the Python implementation's ACTIVE_WORKFLOW
// contextvar. This is strictly a convenience for callers that thread a
// context.Context through their own code: the worker never sets it, and a
// quest function (quest.Fn) receives no context.Context, so it cannot read
// the active workflow from inside a running quest.
type activeKey struct{}

// WithActive returns a context carrying w as the active workflow.
func WithActive(ctx context.Context, w *Workflow) context.Context {
	return context.WithValue(ctx, activeKey{}, w)
}

// Active returns the workflow stashed by WithActive, if any.
func Active(ctx context.Context) (*Workflow, bool) {
	w, ok := ctx.Value(activeKey{}).(*Workflow)
	return w, ok
}
