package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TedCassirer/sidequest/graph"
	"github.com/TedCassirer/sidequest/quest"
)

func TestValidate_NoDependenciesIsFine(t *testing.T) {
	q := quest.New(nil, "leaf")
	assert.NoError(t, graph.Validate(q))
}

func TestValidate_LinearChainIsFine(t *testing.T) {
	a := quest.New(nil, "a")
	b := quest.New(nil, "b", a)
	c := quest.New(nil, "c", b)
	assert.NoError(t, graph.Validate(c))
}

func TestValidate_DetectsCycle(t *testing.T) {
	a := quest.New(nil, "a")
	b := quest.New(nil, "b", a)
	// manually introduce a cycle: a now depends on b
	a.Args = append(a.Args, b)

	err := graph.Validate(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestCollect_GathersEveryReachableContext(t *testing.T) {
	a := quest.New(nil, "a")
	b := quest.New(nil, "b", a)
	c := quest.New(nil, "c", a, b)

	got := graph.Collect(c)
	assert.Len(t, got, 3)
}

func TestTopoOrder_DependenciesComeFirst(t *testing.T) {
	a := quest.New(nil, "a")
	b := quest.New(nil, "b", a)
	c := quest.New(nil, "c", b)

	order, err := graph.TopoOrder(graph.Collect(c))
	require.NoError(t, err)
	require.Len(t, order, 3)

	index := make(map[string]int)
	for i, ctx := range order {
		index[ctx.ID] = i
	}
	assert.Less(t, index[a.ID], index[b.ID])
	assert.Less(t, index[b.ID], index[c.ID])
}

func TestTopoOrder_DiamondDependency(t *testing.T) {
	a := quest.New(nil, "a")
	b := quest.New(nil, "b", a)
	c := quest.New(nil, "c", a)
	d := quest.New(nil, "d", b, c)

	order, err := graph.TopoOrder(graph.Collect(d))
	require.NoError(t, err)
	require.Len(t, order, 4)

	index := make(map[string]int)
	for i, ctx := range order {
		index[ctx.ID] = i
	}
	assert.Less(t, index[a.ID], index[b.ID])
	assert.Less(t, index[a.ID], index[c.ID])
	assert.Less(t, index[b.ID], index[d.ID])
	assert.Less(t, index[c.ID], index[d.ID])
}

func TestTopoOrder_CycleIsError(t *testing.T) {
	a := quest.New(nil, "a")
	b := quest.New(nil, "b", a)
	a.Args = append(a.Args, b)

	_, err := graph.TopoOrder([]*quest.Context{a, b})
	assert.Error(t, err)
}
