package hclexpr_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/hclexpr"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type fakeScope struct {
	subject any
	data    any
	params  map[string]any
}

func (s fakeScope) Subject() any { return s.subject }
func (s fakeScope) Data() any    { return s.data }
func (s fakeScope) Parameter(name string) (any, bool) {
	v, ok := s.params[name]
	return v, ok
}
func (s fakeScope) Parameters() map[string]any     { return s.params }
func (s fakeScope) Transaction() ports.Transaction { return nil }

type person struct {
	Name string `mapstructure:"name"`
	Age  int    `mapstructure:"age"`
}

func TestEvaluator_Expressions(t *testing.T) {
	ev := hclexpr.New()
	scope := fakeScope{
		subject: person{Name: "ada", Age: 36},
		data:    map[string]any{"items": []any{"a", "b"}, "count": 2},
		params:  map[string]any{"n": 21, "flag": true},
	}

	tests := []struct {
		source string
		want   any
	}{
		{`params.n * 2`, 42},
		{`params.n / 2`, 10.5},
		{`upper(this.name)`, "ADA"},
		{`this.age > 30`, true},
		{`length(data.items)`, 2},
		{`data.count == 2 ? "two" : "other"`, "two"},
		{`join(",", data.items)`, "a,b"},
		{`{ name = this.name, adult = this.age >= 18 }`, map[string]any{"name": "ada", "adult": true}},
		{`[for s in data.items : upper(s)]`, []any{"A", "B"}},
		{`params.flag && !false`, true},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got, err := ev.Evaluate(context.Background(), scope, tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_Errors(t *testing.T) {
	ev := hclexpr.New()
	scope := fakeScope{params: map[string]any{}}

	_, err := ev.Evaluate(context.Background(), scope, `1 +`)
	assert.Error(t, err, "syntax errors are reported")

	_, err = ev.Evaluate(context.Background(), scope, `params.missing`)
	assert.Error(t, err, "unknown attributes are reported")

	_, err = ev.Evaluate(context.Background(), scope, `fail("no stock")`)
	var fe *hclexpr.FailError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "no stock", fe.Message)
}

func TestEvaluator_FlowErrorAsData(t *testing.T) {
	ev := hclexpr.New()
	scope := fakeScope{
		data:   &domain.FlowError{NodeID: "charge", Err: assert.AnError},
		params: map[string]any{},
	}

	got, err := ev.Evaluate(context.Background(), scope, `data.node_id`)
	require.NoError(t, err)
	assert.Equal(t, "charge", got)
}

func TestConversions(t *testing.T) {
	v, err := hclexpr.ToCtyValue(map[string]any{"list": []string{"x"}, "n": int64(3)})
	require.NoError(t, err)
	assert.True(t, v.Type().IsObjectType())

	back, err := hclexpr.FromCtyValue(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"list": []any{"x"}, "n": 3}, back)

	null, err := hclexpr.FromCtyValue(cty.NullVal(cty.String))
	require.NoError(t, err)
	assert.Nil(t, null)
}
