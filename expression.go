package hexite

import (
	"context"
	"regexp"
	"strings"

	"github.com/Velocidex/ordereddict"
	"github.com/casbin/govaluate"
	"github.com/pkg/errors"
	"www.velocidex.com/golang/vfilter"
)

var (
	lambdaRegex = regexp.MustCompile(`^\s*[a-zA-Z_][a-zA-Z0-9_]* *=>`)
)

// An Expression computes a count, offset or size from previously
// decoded values. Two forms are accepted:
//
//	x => x.Header.Count * 2      a VQL lambda called with "this"
//	Count * 2                    arithmetic over sibling fields
//
// In arithmetic form nested struct members are flattened and must be
// bracketed: [Header.Count] * 2
type Expression struct {
	source string

	lambda     *vfilter.Lambda
	arithmetic *govaluate.EvaluableExpression
}

func NewExpression(source string) (*Expression, error) {
	result := &Expression{source: source}

	if isLambda(source) {
		lambda, err := vfilter.ParseLambda(source)
		if err != nil {
			return nil, errors.Wrapf(InvalidConfigurationError,
				"lambda '%v': %v", source, err)
		}
		result.lambda = lambda
		return result, nil
	}

	expression, err := govaluate.NewEvaluableExpression(source)
	if err != nil {
		return nil, errors.Wrapf(InvalidConfigurationError,
			"expression '%v': %v", source, err)
	}
	result.arithmetic = expression
	return result, nil
}

func isLambda(source string) bool {
	return lambdaRegex.MatchString(source)
}

func (self *Expression) String() string {
	return self.source
}

func (self *Expression) Eval(ctx SizeContext) (interface{}, error) {
	this := ctx.This
	if this == nil {
		this = ordereddict.NewDict()
	}

	if self.lambda != nil {
		scope := ctx.Scope
		if scope == nil {
			scope = MakeScope()
		}
		result := self.lambda.Reduce(context.Background(), scope,
			[]vfilter.Any{this})
		return result, nil
	}

	result, err := self.arithmetic.Evaluate(flatten(this, "", nil))
	if err != nil {
		return nil, &MalformedDynamicSize{
			Expression: self.source,
			Reason:     err.Error(),
		}
	}
	return result, nil
}

func (self *Expression) EvalInt64(ctx SizeContext) (int64, error) {
	value, err := self.Eval(ctx)
	if err != nil {
		return 0, err
	}

	result, ok := to_int64(value)
	if !ok {
		return 0, &MalformedDynamicSize{
			Expression: self.source,
			Value:      value,
			Reason:     "is not an integer",
		}
	}
	return result, nil
}

// govaluate only does arithmetic on float64 and has no notion of
// nested maps, so members are flattened into dotted names.
func flatten(dict *ordereddict.Dict, prefix string,
	result map[string]interface{}) map[string]interface{} {
	if result == nil {
		result = make(map[string]interface{})
	}

	for _, k := range dict.Keys() {
		v, _ := dict.Get(k)
		name := k
		if prefix != "" {
			name = strings.Join([]string{prefix, k}, ".")
		}

		switch t := v.(type) {
		case *ordereddict.Dict:
			flatten(t, name, result)

		default:
			f, ok := to_float64(v)
			if ok {
				result[name] = f
			} else {
				result[name] = v
			}
		}
	}
	return result
}
