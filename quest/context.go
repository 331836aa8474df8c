package quest

import (
	"github.com/google/uuid"

	"github.com/TedCassirer/sidequest/queue"
)

// Context is one pending invocation of a registered quest: a name, bound
// arguments (which may themselves be unevaluated Contexts, forming a DAG),
// and a fresh id that becomes the task identity once dispatched. Building a
// Context never executes anything.
type Context struct {
	ID        string
	QuestName string
	Args      []any          // scalars, containers, or nested *Context
	Kwargs    map[string]any // same shape, keyed by parameter name
	Queue     queue.Queue
}

// New constructs a Context for quest name, bound to q, with positional
// arguments args. Arguments may be plain values, slices/maps of them,
// other *Context values, or the result of Cast on another context.
func New(q queue.Queue, name string, args ...any) *Context {
	return NewKw(q, name, args, nil)
}

// NewKw is New with both positional and named arguments.
func NewKw(q queue.Queue, name string, args []any, kwargs map[string]any) *Context {
	ctx := &Context{
		ID:        uuid.New().String(),
		QuestName: name,
		Queue:     q,
	}
	ctx.Args = make([]any, len(args))
	for i, a := range args {
		ctx.Args[i] = valueOf(a)
	}
	if kwargs != nil {
		ctx.Kwargs = make(map[string]any, len(kwargs))
		for k, v := range kwargs {
			ctx.Kwargs[k] = valueOf(v)
		}
	}
	return ctx
}
