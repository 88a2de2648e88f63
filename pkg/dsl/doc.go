/*
Package dsl provides a fluent Go builder for flow graphs.

It lets tests and embedding programs declare graphs in code instead of flow
files. The built Graph is both a ports.GraphLoader and a
ports.ContainerResolver, so it can be handed straight to tendril.New.

Example usage:

	b := dsl.New()
	b.Container("main", "check", "")

	b.Add("qty").Parameter("quantity")
	b.Add("many").Compare(domain.CompareGreater, 10).From("qty")
	b.Add("check").Decision("many", "bulk", "single")
	b.Add("bulk").Return("bulk")
	b.Add("single").Return("single")

	graph, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	eng, err := tendril.New(graph)
*/
package dsl
