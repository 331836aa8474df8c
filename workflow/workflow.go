// Package workflow wraps a quest context graph with the operations a
// caller actually wants once it's been built: dispatch it, wait on its
// final result, and inspect the status of every task in it.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TedCassirer/sidequest/dispatch"
	"github.com/TedCassirer/sidequest/graph"
	"github.com/TedCassirer/sidequest/quest"
	"github.com/TedCassirer/sidequest/queue"
	"github.com/TedCassirer/sidequest/store"
)

// Workflow is the handle returned once a root quest.Context has been built.
// It does not dispatch anything on its own; Dispatch must be called
// explicitly.
type Workflow struct {
	root  *quest.Context
	queue queue.Queue
	store store.Store

	mu   sync.Mutex
	ctxs []*quest.Context // lazily computed, cached: the graph never changes
}

// New wraps root, whose tasks will be sent to q and whose results will be
// read from st.
func New(root *quest.Context, q queue.Queue, st store.Store) *Workflow {
	return &Workflow{root: root, queue: q, store: st}
}

// ID returns the root context's task id, the one Result reads once the
// workflow has run to completion.
func (w *Workflow) ID() string {
	return w.root.ID
}

func (w *Workflow) contexts() []*quest.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctxs == nil {
		w.ctxs = graph.Collect(w.root)
	}
	return w.ctxs
}

// Dispatch validates and sends every task in the workflow's graph.
func (w *Workflow) Dispatch(ctx context.Context) error {
	return dispatch.Dispatch(ctx, w.queue, w.store, w.root)
}

// Result blocks, polling the store, until the root task reaches a terminal
// status or ctx is cancelled. It returns the decoded result on Success, or
// the stored error on Failed.
func (w *Workflow) Result(ctx context.Context, resultType any) (any, error) {
	const pollInterval = 50 * time.Millisecond

	for {
		rec, err := w.store.Get(ctx, w.root.ID)
		if err == nil && rec.Status.IsTerminal() {
			if rec.Status == store.Failed {
				return nil, fmt.Errorf("workflow: task %s failed: %s", rec.TaskID, rec.Error)
			}
			return store.Decode(rec.Result, resultType)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Status is the observed state of one task in a workflow's graph. Waiting
// is computed, never stored: a Pending task (registered but not yet
// recorded as Running) is reported Waiting whenever any of its dependencies
// is not yet terminal, per the workflow handle's status-upgrade rule.
type Status struct {
	TaskID    string
	QuestName string
	Status    store.Status
}

// Waiting is the pseudo-status reported for a Pending task whose
// dependencies haven't all finished, or one the store has no record for
// yet (i.e. not dispatched).
const Waiting store.Status = "waiting"

// Statuses reports the current status of every task in the workflow's
// graph, including ones that haven't started yet. A task's stored status
// is upgraded to Waiting, purely for this read, when it is Pending and at
// least one of its dependencies is not terminal; the store itself never
// records Waiting.
func (w *Workflow) Statuses(ctx context.Context) ([]Status, error) {
	contexts := w.contexts()
	out := make([]Status, 0, len(contexts))
	for _, qc := range contexts {
		rec, err := w.store.Get(ctx, qc.ID)
		if err != nil {
			out = append(out, Status{TaskID: qc.ID, QuestName: qc.QuestName, Status: Waiting})
			continue
		}
		status := rec.Status
		if status == store.Pending {
			ready, err := w.depsTerminal(ctx, rec.Deps)
			if err != nil {
				return nil, err
			}
			if !ready {
				status = Waiting
			}
		}
		out = append(out, Status{TaskID: qc.ID, QuestName: qc.QuestName, Status: status})
	}
	return out, nil
}

// depsTerminal reports whether every id in deps has reached a terminal
// status in the store.
func (w *Workflow) depsTerminal(ctx context.Context, deps []string) (bool, error) {
	for _, id := range deps {
		terminal, err := w.store.ExistsTerminal(ctx, id)
		if err != nil {
			return false, err
		}
		if !terminal {
			return false, nil
		}
	}
	return true, nil
}
