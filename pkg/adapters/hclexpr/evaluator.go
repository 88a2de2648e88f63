// Package hclexpr evaluates node scripts as HCL expressions.
//
// Scripts see three variables: data (the node's upstream value), this (the
// invocation subject) and params (the invocation parameters). The cty standard
// library functions are available, plus fail(message) which raises an error.
package hclexpr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/tendril/pkg/ports"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Evaluator implements ports.ScriptEvaluator.
type Evaluator struct {
	functions map[string]function.Function
	parsed    sync.Map // source -> hclsyntax.Expression
}

// New creates an evaluator with the default function set.
func New() *Evaluator {
	return &Evaluator{
		functions: map[string]function.Function{
			"upper":      stdlib.UpperFunc,
			"lower":      stdlib.LowerFunc,
			"trimspace":  stdlib.TrimSpaceFunc,
			"strlen":     stdlib.StrlenFunc,
			"substr":     stdlib.SubstrFunc,
			"format":     stdlib.FormatFunc,
			"join":       stdlib.JoinFunc,
			"split":      stdlib.SplitFunc,
			"length":     stdlib.LengthFunc,
			"concat":     stdlib.ConcatFunc,
			"keys":       stdlib.KeysFunc,
			"values":     stdlib.ValuesFunc,
			"coalesce":   stdlib.CoalesceFunc,
			"max":        stdlib.MaxFunc,
			"min":        stdlib.MinFunc,
			"abs":        stdlib.AbsoluteFunc,
			"jsonencode": stdlib.JSONEncodeFunc,
			"jsondecode": stdlib.JSONDecodeFunc,
			"fail":       failFunc,
		},
	}
}

// Evaluate parses (once) and evaluates source against the scope.
func (e *Evaluator) Evaluate(ctx context.Context, scope ports.Scope, source string) (any, error) {
	expr, err := e.parse(source)
	if err != nil {
		return nil, err
	}

	data, err := ToCtyValue(scope.Data())
	if err != nil {
		return nil, fmt.Errorf("binding data: %w", err)
	}
	this, err := ToCtyValue(scope.Subject())
	if err != nil {
		return nil, fmt.Errorf("binding this: %w", err)
	}
	params, err := ToCtyValue(scope.Parameters())
	if err != nil {
		return nil, fmt.Errorf("binding params: %w", err)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"data":   data,
			"this":   this,
			"params": params,
		},
		Functions: e.functions,
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diagError(diags)
	}
	return FromCtyValue(val)
}

func (e *Evaluator) parse(source string) (hclsyntax.Expression, error) {
	if cached, ok := e.parsed.Load(source); ok {
		return cached.(hclsyntax.Expression), nil
	}
	expr, diags := hclsyntax.ParseExpression([]byte(source), "script", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diagError(diags)
	}
	e.parsed.Store(source, expr)
	return expr, nil
}

// diagError surfaces a failure raised by fail() as-is, other diagnostics as text.
func diagError(diags hcl.Diagnostics) error {
	for _, d := range diags {
		extra, ok := d.Extra.(hclsyntax.FunctionCallDiagExtra)
		if !ok {
			continue
		}
		var fe *FailError
		if errors.As(extra.FunctionCallError(), &fe) {
			return fe
		}
	}
	return errors.New(diags.Error())
}

// FailError is raised by the fail() script function.
type FailError struct {
	Message string
}

func (e *FailError) Error() string {
	return e.Message
}

var failFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "message", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.NilVal, &FailError{Message: args[0].AsString()}
	},
})
