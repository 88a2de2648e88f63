package runtime

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// notNullNode is true when every declared source yields a present value.
type notNullNode struct{ base }

func (n *notNullNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		values, err := sourcesOrFallback(ctx, fc, n, domain.EdgeDataSource)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return false, nil
		}
		for _, v := range values {
			if v == nil {
				return false, nil
			}
		}
		return true, nil
	})
}

// isTrueNode is true when every gathered value is truthy.
type isTrueNode struct{ base }

func (n *isTrueNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		values, err := sourcesOrFallback(ctx, fc, n, domain.EdgeCurrentData)
		if err != nil {
			return nil, err
		}
		return allTruthy(values), nil
	})
}

// logicNode folds its condition sources with AND (all) or OR.
type logicNode struct {
	base
	all bool
}

func (n *logicNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		values, err := fc.pullAll(ctx, n, domain.EdgeSources)
		if err != nil {
			return nil, err
		}
		if n.all {
			return allTruthy(values), nil
		}
		for _, v := range values {
			if domain.Truthy(v) {
				return true, nil
			}
		}
		return false, nil
	})
}

type notNode struct{ base }

func (n *notNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		v, err := fc.pull(ctx, n, domain.EdgeDataSource)
		if err != nil {
			return nil, err
		}
		return !domain.Truthy(v), nil
	})
}

// comparisonNode compares its data source against a value source or literal.
type comparisonNode struct{ base }

func (n *comparisonNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		switch n.rec.Operation {
		case domain.CompareEqual, domain.CompareNotEqual, domain.CompareLess,
			domain.CompareLessEqual, domain.CompareGreater, domain.CompareGreaterEqual:
		default:
			return nil, &domain.ConfigError{NodeID: n.ID(), Reason: "unknown comparison '" + n.rec.Operation + "'"}
		}

		left, err := fc.pull(ctx, n, domain.EdgeDataSource)
		if err != nil {
			return nil, err
		}
		right, connected, err := fc.pullOptional(ctx, n, domain.EdgeValueSource)
		if err != nil {
			return nil, err
		}
		if !connected {
			right = n.rec.Value
		}

		switch n.rec.Operation {
		case domain.CompareEqual:
			return domain.LooselyEqual(left, right), nil
		case domain.CompareNotEqual:
			return !domain.LooselyEqual(left, right), nil
		}

		c, ok := domain.Compare(left, right)
		if !ok {
			return false, nil
		}
		switch n.rec.Operation {
		case domain.CompareLess:
			return c < 0, nil
		case domain.CompareLessEqual:
			return c <= 0, nil
		case domain.CompareGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	})
}

// sourcesOrFallback gathers the sources edge, or the single fallback edge
// when no sources are declared.
func sourcesOrFallback(ctx context.Context, fc *ExecContext, n Node, fallback string) ([]any, error) {
	if len(n.Record().EdgeList(domain.EdgeSources)) > 0 {
		return fc.pullAll(ctx, n, domain.EdgeSources)
	}
	v, connected, err := fc.pullOptional(ctx, n, fallback)
	if err != nil || !connected {
		return nil, err
	}
	return []any{v}, nil
}

func allTruthy(values []any) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !domain.Truthy(v) {
			return false
		}
	}
	return true
}
