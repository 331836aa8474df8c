// Package dispatch turns a quest context graph into queued task messages,
// registering a pending record for each task before its message goes out so
// nothing can be observed as "running" before the store knows it exists.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/TedCassirer/sidequest/graph"
	"github.com/TedCassirer/sidequest/quest"
	"github.com/TedCassirer/sidequest/queue"
	"github.com/TedCassirer/sidequest/store"
)

// Dispatch validates root's dependency graph, then sends one message per
// context it reaches, dependencies before dependents. Each context's
// nested *Context arguments are replaced with Ref markers pointing at the
// dependency's task id, so a worker only ever sees its own arguments plus
// references it must resolve from the store. If st is non-nil, each
// context's Pending record is written to it before that context's message
// is sent; with a nil st, messages are sent and nothing is registered.
func Dispatch(ctx context.Context, q queue.Queue, st store.Store, root *quest.Context) error {
	if err := graph.Validate(root); err != nil {
		return err
	}

	contexts := graph.Collect(root)
	ordered, err := graph.TopoOrder(contexts)
	if err != nil {
		return err
	}

	for _, qc := range ordered {
		if err := dispatchOne(ctx, q, st, qc); err != nil {
			return fmt.Errorf("dispatch: failed to dispatch %s (%s): %w", qc.ID, qc.QuestName, err)
		}
	}
	return nil
}

func dispatchOne(ctx context.Context, q queue.Queue, st store.Store, qc *quest.Context) error {
	deps := depIDs(qc)

	if st != nil {
		rec := store.Record{
			TaskID:    qc.ID,
			QuestName: qc.QuestName,
			Status:    store.Pending,
			Deps:      deps,
			UpdatedAt: time.Now(),
		}
		if err := st.Put(ctx, rec); err != nil {
			return fmt.Errorf("failed to register pending record: %w", err)
		}
	}

	msg := queue.Message{
		TaskID:    qc.ID,
		QuestName: qc.QuestName,
		Args:      refArgs(qc.Args),
		Kwargs:    refKwargs(qc.Kwargs),
		Deps:      deps,
	}
	if err := q.Send(msg); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

func refArgs(args []any) []any {
	if args == nil {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = quest.ToWire(a)
	}
	return out
}

func refKwargs(kwargs map[string]any) map[string]any {
	if kwargs == nil {
		return nil
	}
	out := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		out[k] = quest.ToWire(v)
	}
	return out
}

// depIDs returns the task ids of qc's immediate dependencies, the set the
// worker's dependency gate checks before running qc. Transitive
// dependencies are not listed: they're covered by each dependency's own
// gate before it reaches a terminal status.
func depIDs(qc *quest.Context) []string {
	deps := quest.Dependencies(qc)
	if len(deps) == 0 {
		return nil
	}
	ids := make([]string, len(deps))
	for i, d := range deps {
		ids[i] = d.ID
	}
	return ids
}
