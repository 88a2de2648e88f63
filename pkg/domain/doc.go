/*
Package domain contains the core domain models of the Tendril flow engine.

It defines the stored shape of a flow graph and the values that cross the engine
boundary. This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Node: a stored flow node record (ID, Kind, named edges and properties).
  - Container: an invocable unit made of a start node and its reachable graph.
  - Result: the value and optional error produced by an evaluation.
  - FlowError: a failure routed along graph edges, tied to its originating node.
  - ConfigError: a structural problem with the graph, reported instead of crashing.
*/
package domain
