/*
Package ports defines the driven ports (interfaces) for the Tendril engine.

These interfaces decouple the interpreter from the collaborators it is evaluated
against: where node records come from, how scripts are evaluated, how object
properties are read, where the persisted graph lives and where the store area is kept.

# Key Interfaces

  - GraphLoader: loads raw node definitions (e.g., from memory or flow files).
  - ScriptEvaluator: runs scripts of Action, DataSource and ScriptCondition nodes.
  - Introspector: resolves and reads object properties for GetProperty nodes.
  - Repository: opens transactions against the persisted graph.
  - KeyValueStore: backs the store area shared by forks.
  - DistributedLocker: serializes evaluations that share external state across replicas.
*/
package ports
