/*
Package tendril is an interpreter for visual flow graphs.

A flow is a graph of typed nodes connected by named edges. Executable nodes
(actions, decisions, loops, forks, calls) form the control chain; data nodes
(parameters, scripts, property accessors, conditions) are pulled lazily by
the nodes that consume them and are computed at most once per execution
context. Errors travel along exception_handler edges, falling back to the
container's default handler.

# Usage

	loader, err := file.Load("orders.yaml")
	if err != nil {
		log.Fatal(err)
	}

	eng, err := tendril.New(loader)
	if err != nil {
		log.Fatal(err)
	}

	main, err := eng.Container("main")
	if err != nil {
		log.Fatal(err)
	}

	res := main.Evaluate(context.Background(), map[string]any{"price": 30, "quantity": 4})
	if !res.Ok() {
		log.Fatal(res.Err)
	}
	fmt.Println(res.Value)

Scripts default to HCL expressions with data, this and params in scope.
Use WithEvaluator to plug in another language, WithRepository to run
against a transactional object graph and WithStore to share the store area
through Redis or the filesystem.
*/
package tendril
