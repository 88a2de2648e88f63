package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/tendril/pkg/domain"
)

// actionNode evaluates its script and publishes the result.
type actionNode struct{ base }

func (n *actionNode) Execute(ctx context.Context, fc *ExecContext) error {
	_, err := n.Get(ctx, fc)
	return err
}

func (n *actionNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		data, _, err := fc.pullOptional(ctx, n, domain.EdgeDataSource)
		if err != nil {
			return nil, err
		}
		return fc.evaluate(ctx, n, data)
	})
}

// scriptSourceNode transforms its upstream value with a script, or passes
// it through when there is no script.
type scriptSourceNode struct{ base }

func (n *scriptSourceNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		data, _, err := fc.pullOptional(ctx, n, domain.EdgeDataSource)
		if err != nil {
			return nil, err
		}
		switch {
		case n.rec.Script != "":
			return fc.evaluate(ctx, n, data)
		case n.rec.Value != nil:
			return n.rec.Value, nil
		}
		return data, nil
	})
}

type scriptConditionNode struct{ base }

func (n *scriptConditionNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		data, _, err := fc.pullOptional(ctx, n, domain.EdgeDataSource)
		if err != nil {
			return nil, err
		}
		v, err := fc.evaluate(ctx, n, data)
		if err != nil {
			return nil, err
		}
		return domain.Truthy(v), nil
	})
}

// getPropertyNode reads a named property of its upstream object.
type getPropertyNode struct{ base }

func (n *getPropertyNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		obj, err := fc.pull(ctx, n, domain.EdgeDataSource)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, nil
		}

		name := n.rec.PropertyName
		if name == "" {
			raw, connected, err := fc.pullOptional(ctx, n, domain.EdgePropertyNameSource)
			if err != nil {
				return nil, err
			}
			if !connected {
				return nil, domain.MissingEdge(n.ID(), domain.EdgePropertyNameSource)
			}
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("property name must be a string, got %T", raw)
			}
			name = s
		}

		intro := fc.prog.engine.introspector
		if intro == nil {
			return nil, &domain.ConfigError{NodeID: n.ID(), Reason: "no introspector configured"}
		}
		key, ok := intro.ResolvePropertyKey(obj, name)
		if !ok {
			return nil, &domain.ConfigError{NodeID: n.ID(), Reason: fmt.Sprintf("'%s' on %T", name, obj), Err: domain.ErrPropertyNotFound}
		}
		return intro.ReadProperty(obj, key)
	})
}

// keyValueNode pairs a key with an upstream value.
type keyValueNode struct{ base }

func (n *keyValueNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		key := n.rec.Key
		if key == "" {
			raw, err := fc.pull(ctx, n, domain.EdgeKeySource)
			if err != nil {
				return nil, err
			}
			key = fmt.Sprint(raw)
		}

		value, connected, err := fc.pullOptional(ctx, n, domain.EdgeValueSource)
		if err != nil {
			return nil, err
		}
		if !connected {
			value, connected, err = fc.pullOptional(ctx, n, domain.EdgeDataSource)
			if err != nil {
				return nil, err
			}
		}
		if !connected {
			value = n.rec.Value
		}
		return domain.KeyValue{Key: key, Value: value}, nil
	})
}

// objectSourceNode folds its key/value sources into one object.
type objectSourceNode struct{ base }

func (n *objectSourceNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		values, err := fc.pullAll(ctx, n, domain.EdgeKeyValues)
		if err != nil {
			return nil, err
		}
		obj := make(map[string]any, len(values))
		for _, v := range values {
			switch kv := v.(type) {
			case domain.KeyValue:
				obj[kv.Key] = kv.Value
			case *domain.KeyValue:
				obj[kv.Key] = kv.Value
			case nil:
			default:
				return nil, fmt.Errorf("key/value source yielded %T", v)
			}
		}
		return obj, nil
	})
}

// typeQueryNode lists persisted objects of a type through the active transaction.
type typeQueryNode struct{ base }

func (n *typeQueryNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		tx := fc.Tx()
		if tx == nil {
			return nil, &domain.ConfigError{NodeID: n.ID(), Reason: "no repository configured"}
		}
		objects, err := tx.Query(ctx, n.rec.DataType, n.rec.Query)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", n.rec.DataType, err)
		}
		out := make([]any, len(objects))
		for i, o := range objects {
			out[i] = o
		}
		return out, nil
	})
}

type parameterNode struct{ base }

func (n *parameterNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		v, _ := fc.Parameter(n.rec.Key)
		return v, nil
	})
}

// firstNode yields the first element of its upstream collection.
type firstNode struct{ base }

func (n *firstNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		coll, err := fc.pull(ctx, n, domain.EdgeDataSource)
		if err != nil {
			return nil, err
		}
		items, err := elements(coll)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, nil
		}
		return items[0], nil
	})
}

// storeNode writes to or reads from the context store.
type storeNode struct{ base }

// retrieves reports whether the node reads the store.
func (n *storeNode) retrieves() (bool, error) {
	if n.rec.Key == "" {
		return false, &domain.ConfigError{NodeID: n.ID(), Reason: "store key is empty"}
	}
	switch n.rec.Operation {
	case "", domain.OperationStore:
		return false, nil
	case domain.OperationRetrieve:
		return true, nil
	}
	return false, &domain.ConfigError{NodeID: n.ID(), Reason: "unknown store operation '" + n.rec.Operation + "'"}
}

func (n *storeNode) Execute(ctx context.Context, fc *ExecContext) error {
	retrieve, err := n.retrieves()
	if err != nil {
		return err
	}
	if retrieve {
		_, err := n.Get(ctx, fc)
		return err
	}

	value, connected, err := fc.pullOptional(ctx, n, domain.EdgeDataSource)
	if err != nil {
		return err
	}
	if !connected {
		value = n.rec.Value
	}
	if err := fc.PutIntoStore(ctx, n.rec.Key, value); err != nil {
		return err
	}
	fc.SetData(n.ID(), value)
	return nil
}

func (n *storeNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		retrieve, err := n.retrieves()
		if err != nil {
			return nil, err
		}
		if retrieve {
			return fc.RetrieveFromStore(ctx, n.rec.Key)
		}
		v, _, err := fc.pullOptional(ctx, n, domain.EdgeDataSource)
		return v, err
	})
}

// propagatorNode re-publishes its upstream value under its own ID.
type propagatorNode struct{ base }

func (n *propagatorNode) Execute(ctx context.Context, fc *ExecContext) error {
	_, err := n.Get(ctx, fc)
	return err
}

func (n *propagatorNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		return fc.pull(ctx, n, domain.EdgeDataSource)
	})
}

// logNode writes a value to the engine logger.
type logNode struct{ base }

func (n *logNode) Execute(ctx context.Context, fc *ExecContext) error {
	value, err := n.Get(ctx, fc)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if n.rec.Level != "" {
		if err := level.UnmarshalText([]byte(n.rec.Level)); err != nil {
			return &domain.ConfigError{NodeID: n.ID(), Reason: fmt.Sprintf("invalid log level '%s'", n.rec.Level)}
		}
	}
	fc.logger.Log(ctx, level, "flow log", "node_id", n.ID(), "value", value)
	return nil
}

func (n *logNode) Get(ctx context.Context, fc *ExecContext) (any, error) {
	return memoized(fc, n.ID(), func() (any, error) {
		data, connected, err := fc.pullOptional(ctx, n, domain.EdgeDataSource)
		if err != nil {
			return nil, err
		}
		switch {
		case n.rec.Script != "":
			return fc.evaluate(ctx, n, data)
		case connected:
			return data, nil
		}
		return n.rec.Value, nil
	})
}
