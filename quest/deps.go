package quest

// Dependencies returns the contexts ctx's arguments reference directly: the
// *Context values reachable by walking Args and Kwargs, not recursing into
// any dependency's own arguments. Those form the next layer of the graph,
// not this context's dependency set.
func Dependencies(ctx *Context) []*Context {
	var deps []*Context
	seen := make(map[*Context]bool)
	collect := func(c *Context) {
		if !seen[c] {
			seen[c] = true
			deps = append(deps, c)
		}
	}
	for _, a := range ctx.Args {
		walk(a, collect)
	}
	for _, v := range ctx.Kwargs {
		walk(v, collect)
	}
	return deps
}
