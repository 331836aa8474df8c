// Command sidequest-demo exercises the sidequest library end to end:
// register a couple of quests, build a small dependency graph, dispatch
// it, drain it with an in-process worker, and print the final statuses
// and result.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/TedCassirer/sidequest/log"
	"github.com/TedCassirer/sidequest/quest"
	"github.com/TedCassirer/sidequest/queue"
	"github.com/TedCassirer/sidequest/store"
	"github.com/TedCassirer/sidequest/worker"
	"github.com/TedCassirer/sidequest/workflow"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runDemo()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: sidequest-demo run")
}

func registerQuests() *quest.Registry {
	reg := quest.NewRegistry()

	reg.Register(&quest.Definition{
		Name: "fetch_number",
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			n, _ := args[0].(float64)
			return n, nil
		},
		ResultType: 0.0,
	})

	reg.Register(&quest.Definition{
		Name: "square",
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			n, _ := args[0].(float64)
			return n * n, nil
		},
		ResultType: 0.0,
	})

	reg.Register(&quest.Definition{
		Name: "sum",
		Fn: func(args []any, kwargs map[string]any) (any, error) {
			total := 0.0
			for _, a := range args {
				n, _ := a.(float64)
				total += n
			}
			return total, nil
		},
		ResultType: 0.0,
	})

	return reg
}

func runDemo() {
	reg := registerQuests()
	q := queue.NewMemory()
	st := store.NewMemory()

	a := quest.NewKw(q, "fetch_number", []any{3.0}, nil)
	b := quest.NewKw(q, "fetch_number", []any{4.0}, nil)
	squaredA := quest.New(q, "square", a)
	squaredB := quest.New(q, "square", b)
	total := quest.New(q, "sum", squaredA, squaredB)

	wf := workflow.New(total, q, st)

	ctx := context.Background()
	if err := wf.Dispatch(ctx); err != nil {
		log.WithField("error", err).Fatal("dispatch failed")
	}

	w := worker.New(q, st, reg)
	for {
		ran, err := w.RunOnce(ctx)
		if err != nil {
			log.WithField("error", err).Fatal("worker iteration failed")
		}
		empty, err := q.Empty()
		if err != nil {
			log.WithField("error", err).Fatal("failed to check queue")
		}
		if !ran && empty {
			break
		}
	}

	printStatuses(wf, ctx)

	resultCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	result, err := wf.Result(resultCtx, 0.0)
	if err != nil {
		log.WithField("error", err).Fatal("workflow failed")
	}
	fmt.Printf("\nresult: %v\n", result)
}

func printStatuses(wf *workflow.Workflow, ctx context.Context) {
	statuses, err := wf.Statuses(ctx)
	if err != nil {
		log.WithField("error", err).Fatal("failed to read statuses")
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK ID\tQUEST\tSTATUS")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.TaskID, s.QuestName, s.Status)
	}
	tw.Flush()
}
