package hexite

import (
	"context"

	"github.com/pkg/errors"
	"www.velocidex.com/golang/vfilter"
)

// An Evaluator is the narrow contract to an external scripting or
// decompilation engine: name a module, submit a query expression and
// receive a plain value or an error. Nothing in the core needs one to
// decode correctly.
type Evaluator interface {
	Load(module string) error
	Query(expression string) (interface{}, error)
}

// VQLEvaluator answers lambda queries against decoded data. Modules
// are the top level children of the view's format, or the format
// itself by name.
type VQLEvaluator struct {
	view  *View
	scope vfilter.Scope

	name   string
	module interface{}
}

func NewVQLEvaluator(view *View) *VQLEvaluator {
	return &VQLEvaluator{
		view:  view,
		scope: MakeScope(),
	}
}

func (self *VQLEvaluator) Load(module string) error {
	value, err := self.view.Decode(module)
	if err != nil {
		return errors.Wrapf(err, "loading module %v", module)
	}

	self.name = module
	self.module = value
	return nil
}

// Query evaluates a lambda such as "x => x.Header.Count" with the
// loaded module as its argument.
func (self *VQLEvaluator) Query(expression string) (interface{}, error) {
	if self.module == nil {
		return nil, errors.Wrap(NotFoundError, "no module loaded")
	}

	lambda, err := vfilter.ParseLambda(expression)
	if err != nil {
		return nil, errors.Wrapf(InvalidConfigurationError,
			"query '%v': %v", expression, err)
	}

	result := lambda.Reduce(context.Background(), self.scope,
		[]vfilter.Any{self.module})

	switch result.(type) {
	case vfilter.Null, *vfilter.Null, nil:
		return nil, errors.Wrapf(NotFoundError, "query '%v' on module %v",
			expression, self.name)
	}

	return result, nil
}
