// Package graph provides cycle detection and topological sorting over the
// dependency graph formed by quest contexts referencing each other through
// their arguments.
package graph

import (
	"fmt"

	"github.com/TedCassirer/sidequest/quest"
)

// Validate walks the dependency graph rooted at root and returns an error
// if it contains a cycle. A context can reach itself only through a chain
// of argument references; two quests that are merely equal by id but never
// reference each other are not a cycle.
func Validate(root *quest.Context) error {
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)
	return checkCycle(root, visited, recursionStack)
}

func checkCycle(ctx *quest.Context, visited, recursionStack map[string]bool) error {
	visited[ctx.ID] = true
	recursionStack[ctx.ID] = true

	for _, dep := range quest.Dependencies(ctx) {
		if !visited[dep.ID] {
			if err := checkCycle(dep, visited, recursionStack); err != nil {
				return err
			}
		} else if recursionStack[dep.ID] {
			return fmt.Errorf("graph: circular dependency detected: %s -> %s", ctx.ID, dep.ID)
		}
	}

	recursionStack[ctx.ID] = false
	return nil
}

// Collect gathers root and every context transitively reachable through its
// arguments, each appearing once, in no particular order.
func Collect(root *quest.Context) []*quest.Context {
	seen := make(map[string]bool)
	var out []*quest.Context
	var visit func(*quest.Context)
	visit = func(ctx *quest.Context) {
		if seen[ctx.ID] {
			return
		}
		seen[ctx.ID] = true
		out = append(out, ctx)
		for _, dep := range quest.Dependencies(ctx) {
			visit(dep)
		}
	}
	visit(root)
	return out
}

// TopoOrder returns contexts ordered so that every context appears before
// anything that depends on it, using Kahn's algorithm. It returns an error
// if contexts contains a cycle.
func TopoOrder(contexts []*quest.Context) ([]*quest.Context, error) {
	byID := make(map[string]*quest.Context, len(contexts))
	inDegree := make(map[string]int, len(contexts))
	dependents := make(map[string][]*quest.Context)

	for _, ctx := range contexts {
		byID[ctx.ID] = ctx
		if _, ok := inDegree[ctx.ID]; !ok {
			inDegree[ctx.ID] = 0
		}
	}

	for _, ctx := range contexts {
		for _, dep := range quest.Dependencies(ctx) {
			if _, ok := byID[dep.ID]; !ok {
				continue // dependency outside the given set, ignore
			}
			dependents[dep.ID] = append(dependents[dep.ID], ctx)
			inDegree[ctx.ID]++
		}
	}

	var ready []*quest.Context
	for _, ctx := range contexts {
		if inDegree[ctx.ID] == 0 {
			ready = append(ready, ctx)
		}
	}

	var order []*quest.Context
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		for _, dependent := range dependents[current.ID] {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(contexts) {
		return nil, fmt.Errorf("graph: circular dependency detected in context graph")
	}

	return order, nil
}
