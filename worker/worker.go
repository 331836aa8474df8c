// Package worker pulls dispatched task messages off a queue, resolves
// their arguments against the result store, and runs the corresponding
// registered quest.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/TedCassirer/sidequest/log"
	"github.com/TedCassirer/sidequest/quest"
	"github.com/TedCassirer/sidequest/queue"
	"github.com/TedCassirer/sidequest/store"
)

// errPending signals that one of a task's arguments still references a
// dependency that hasn't reached a terminal status. The caller re-enqueues
// the message unchanged and tries again later; this is the dependency gate.
type errPending struct{ id string }

func (e *errPending) Error() string {
	return fmt.Sprintf("worker: dependency %s has not finished yet", e.id)
}

// Worker pulls messages from a Queue, resolves them against a Store and a
// Registry, and executes the named quest. The zero value is not usable;
// construct with New.
type Worker struct {
	Queue       queue.Queue
	Store       store.Store
	Registry    *quest.Registry
	PollTimeout time.Duration

	stop   chan struct{}
	onIdle func()
}

// New returns a Worker reading from q, writing results to st, and looking
// up quests in reg. If reg is nil, the package-wide default registry is
// used.
func New(q queue.Queue, st store.Store, reg *quest.Registry) *Worker {
	if reg == nil {
		reg = quest.Default()
	}
	return &Worker{
		Queue:       q,
		Store:       st,
		Registry:    reg,
		PollTimeout: 5 * time.Second,
		stop:        make(chan struct{}),
	}
}

// OnIdle registers fn to be called whenever RunOnce finds no message
// within PollTimeout. Tests use this to detect a drained queue.
func (w *Worker) OnIdle(fn func()) {
	w.onIdle = fn
}

// Stop signals RunForever to return after its current iteration.
func (w *Worker) Stop() {
	close(w.stop)
}

// RunForever polls the queue until Stop is called or ctx is cancelled.
func (w *Worker) RunForever(ctx context.Context) error {
	for {
		select {
		case <-w.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := w.RunOnce(ctx); err != nil {
			log.WithField("error", err).Warn("worker iteration failed")
		}
	}
}

// RunOnce receives and processes a single message, if one is available
// within PollTimeout. It returns false if the queue had nothing to offer.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	msg, err := w.Queue.Receive(w.PollTimeout)
	if err != nil {
		return false, fmt.Errorf("worker: failed to receive message: %w", err)
	}
	if msg == nil {
		if w.onIdle != nil {
			w.onIdle()
		}
		return false, nil
	}

	w.process(ctx, *msg)
	return true, nil
}

func (w *Worker) process(ctx context.Context, msg queue.Message) {
	entry := log.WithField("task_id", msg.TaskID).WithField("quest", msg.QuestName)

	if waitingOn, ready := w.depsReady(ctx, msg); !ready {
		entry.WithField("waiting_on", waitingOn).Debug("dependency gate: re-enqueueing")
		if sendErr := w.Queue.Send(msg); sendErr != nil {
			entry.WithField("error", sendErr).Error("failed to re-enqueue pending task")
		}
		return
	}

	args, kwargs, err := w.resolve(ctx, msg)
	if err != nil {
		var pending *errPending
		if errors.As(err, &pending) {
			entry.WithField("waiting_on", pending.id).Debug("dependency gate: re-enqueueing")
			if sendErr := w.Queue.Send(msg); sendErr != nil {
				entry.WithField("error", sendErr).Error("failed to re-enqueue pending task")
			}
			return
		}

		entry.WithField("error", err).Warn("dependency resolution failed")
		w.fail(ctx, msg, err)
		return
	}

	def, err := w.Registry.Lookup(msg.QuestName)
	if err != nil {
		w.fail(ctx, msg, err)
		return
	}

	if err := w.markRunning(ctx, msg); err != nil {
		entry.WithField("error", err).Error("failed to mark task running")
	}

	result, err := w.invoke(def, args, kwargs)
	if err != nil {
		entry.WithField("error", err).Warn("quest failed")
		w.fail(ctx, msg, err)
		return
	}

	if err := w.succeed(ctx, msg, result); err != nil {
		entry.WithField("error", err).Error("failed to record success")
	}
}

// depsReady reports whether every id in msg.Deps has reached a terminal
// status in the store. It runs before argument resolution so a task never
// even attempts to resolve its arguments until every upstream task is done,
// success or failure. It returns the first non-terminal dependency id
// found, for logging.
func (w *Worker) depsReady(ctx context.Context, msg queue.Message) (string, bool) {
	for _, dep := range msg.Deps {
		terminal, err := w.Store.ExistsTerminal(ctx, dep)
		if err != nil || !terminal {
			return dep, false
		}
	}
	return "", true
}

// invoke calls def.Fn, converting a panic into an error so one misbehaving
// quest cannot take the worker down.
func (w *Worker) invoke(def *quest.Definition, args []any, kwargs map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: quest %s panicked: %v\n%s", def.Name, r, debug.Stack())
		}
	}()
	return def.Fn(args, kwargs)
}

func (w *Worker) resolve(ctx context.Context, msg queue.Message) ([]any, map[string]any, error) {
	args := make([]any, len(msg.Args))
	for i, a := range msg.Args {
		resolved, err := w.resolveValue(ctx, a)
		if err != nil {
			return nil, nil, err
		}
		args[i] = resolved
	}

	var kwargs map[string]any
	if msg.Kwargs != nil {
		kwargs = make(map[string]any, len(msg.Kwargs))
		for k, v := range msg.Kwargs {
			resolved, err := w.resolveValue(ctx, v)
			if err != nil {
				return nil, nil, err
			}
			kwargs[k] = resolved
		}
	}

	return args, kwargs, nil
}

func (w *Worker) resolveValue(ctx context.Context, v any) (any, error) {
	if id, ok := quest.AsRef(v); ok {
		rec, err := w.Store.Get(ctx, id)
		if err != nil {
			var notFound *store.ErrNotFound
			if errors.As(err, &notFound) {
				return nil, &errPending{id: id}
			}
			return nil, err
		}
		if !rec.Status.IsTerminal() {
			return nil, &errPending{id: id}
		}
		if rec.Status != store.Success {
			// The dependency ran and reached a terminal status, but not
			// Success: there is no result to decode. Resolve to nil and let
			// the quest fail on its own terms, same as the dependency never
			// having produced a value at all.
			return nil, nil
		}

		def, lookupErr := w.Registry.Lookup(rec.QuestName)
		if lookupErr != nil {
			// No registered quest to supply a result type: hand over the
			// stored payload as its raw JSON text.
			return string(rec.Result), nil
		}
		return store.Decode(rec.Result, def.ResultType)
	}

	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			resolved, err := w.resolveValue(ctx, e)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			resolved, err := w.resolveValue(ctx, e)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func (w *Worker) markRunning(ctx context.Context, msg queue.Message) error {
	return w.Store.Put(ctx, store.Record{
		TaskID:    msg.TaskID,
		QuestName: msg.QuestName,
		Status:    store.Running,
		UpdatedAt: time.Now(),
	})
}

func (w *Worker) succeed(ctx context.Context, msg queue.Message, result any) error {
	data, err := store.Encode(result)
	if err != nil {
		return w.Store.Put(ctx, store.Record{
			TaskID:    msg.TaskID,
			QuestName: msg.QuestName,
			Status:    store.Failed,
			Error:     err.Error(),
			UpdatedAt: time.Now(),
		})
	}
	return w.Store.Put(ctx, store.Record{
		TaskID:    msg.TaskID,
		QuestName: msg.QuestName,
		Status:    store.Success,
		Result:    data,
		UpdatedAt: time.Now(),
	})
}

func (w *Worker) fail(ctx context.Context, msg queue.Message, cause error) {
	if err := w.Store.Put(ctx, store.Record{
		TaskID:    msg.TaskID,
		QuestName: msg.QuestName,
		Status:    store.Failed,
		Error:     cause.Error(),
		UpdatedAt: time.Now(),
	}); err != nil {
		log.WithField("task_id", msg.TaskID).WithField("error", err).Error("failed to record failure")
	}
}
