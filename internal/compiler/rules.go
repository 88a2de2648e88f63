package compiler

import (
	"github.com/aretw0/tendril/pkg/domain"
)

// requiredEdges lists the edges a node of each kind cannot run without.
var requiredEdges = map[domain.Kind][]string{
	domain.KindDecision:         {domain.EdgeCondition, domain.EdgeTrueElement, domain.EdgeFalseElement},
	domain.KindForEach:          {domain.EdgeDataSource, domain.EdgeLoopBody},
	domain.KindFork:             {domain.EdgeForkBody},
	domain.KindGetProperty:      {domain.EdgeDataSource},
	domain.KindFirst:            {domain.EdgeDataSource},
	domain.KindNot:              {domain.EdgeDataSource},
	domain.KindComparison:       {domain.EdgeDataSource},
	domain.KindPropagator:       {domain.EdgeDataSource},
	domain.KindObjectDataSource: {domain.EdgeKeyValues},
}

// CheckNode reports the structural problems of a single record.
// The runtime refuses to run a container in which any reachable node has one.
func CheckNode(n *domain.Node) []*domain.ConfigError {
	var errs []*domain.ConfigError
	for _, edge := range requiredEdges[n.Kind] {
		if n.Edge(edge) == "" {
			errs = append(errs, domain.MissingEdge(n.ID, edge))
		}
	}

	switch n.Kind {
	case domain.KindAction, domain.KindScriptCondition:
		if n.Script == "" {
			errs = append(errs, &domain.ConfigError{NodeID: n.ID, Reason: "script is empty"})
		}
	case domain.KindCall:
		if n.Container == "" && n.Edge(domain.EdgeContainerSource) == "" {
			errs = append(errs, &domain.ConfigError{NodeID: n.ID, Edge: domain.EdgeContainerSource, Reason: "no target container"})
		}
	case domain.KindGetProperty:
		if n.PropertyName == "" && n.Edge(domain.EdgePropertyNameSource) == "" {
			errs = append(errs, &domain.ConfigError{NodeID: n.ID, Edge: domain.EdgePropertyNameSource, Reason: "no property name"})
		}
	case domain.KindKeyValue:
		if n.Key == "" && n.Edge(domain.EdgeKeySource) == "" {
			errs = append(errs, &domain.ConfigError{NodeID: n.ID, Edge: domain.EdgeKeySource, Reason: "no key"})
		}
	case domain.KindTypeQuery:
		if n.DataType == "" {
			errs = append(errs, &domain.ConfigError{NodeID: n.ID, Reason: "data_type is empty"})
		}
	case domain.KindParameter:
		if n.Key == "" {
			errs = append(errs, &domain.ConfigError{NodeID: n.ID, Reason: "parameter key is empty"})
		}
	case domain.KindStore:
		switch n.Operation {
		case "", domain.OperationStore, domain.OperationRetrieve:
		default:
			errs = append(errs, &domain.ConfigError{NodeID: n.ID, Reason: "unknown store operation '" + n.Operation + "'"})
		}
		if n.Key == "" {
			errs = append(errs, &domain.ConfigError{NodeID: n.ID, Reason: "store key is empty"})
		}
	case domain.KindComparison:
		switch n.Operation {
		case domain.CompareEqual, domain.CompareNotEqual, domain.CompareLess,
			domain.CompareLessEqual, domain.CompareGreater, domain.CompareGreaterEqual:
		default:
			errs = append(errs, &domain.ConfigError{NodeID: n.ID, Reason: "unknown comparison '" + n.Operation + "'"})
		}
	}
	return errs
}
