package hexite

import (
	"fmt"
	"strconv"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
)

// Labels name the values of an integer primitive for display. The
// decoded value is still the number so expressions are unaffected.
type Labels interface {
	Label(value int64) string
}

type EnumerationOptions struct {
	Type        string            `hexite:"field=type,required"`
	TypeOptions *ordereddict.Dict `hexite:"field=type_options"`

	// choices has numbers as keys and map has names as keys.
	Choices *ordereddict.Dict `hexite:"field=choices"`
	Map     *ordereddict.Dict `hexite:"field=map"`
}

type Enumeration struct {
	Choices map[int64]string
}

func (self *Enumeration) Label(value int64) string {
	name, pres := self.Choices[value]
	if !pres {
		return fmt.Sprintf("%#x", value)
	}
	return name
}

func (self *Profile) newEnumeration(options *ordereddict.Dict) (Type, error) {
	if options == nil {
		return nil, errors.Wrap(InvalidConfigurationError,
			"Enumeration requires an options dict")
	}

	enum_options := &EnumerationOptions{}
	err := ParseOptions(options, enum_options)
	if err != nil {
		return nil, errors.Wrap(err, "Enumeration")
	}

	mapping := make(map[int64]string)
	if enum_options.Choices != nil {
		for _, k := range enum_options.Choices.Keys() {
			v, _ := enum_options.Choices.Get(k)
			i, err := strconv.ParseInt(k, 0, 64)
			if err != nil {
				return nil, errors.Wrapf(InvalidConfigurationError,
					"Enumeration choices should map numbers to names (not %v)", k)
			}

			v_str, ok := v.(string)
			if !ok {
				return nil, errors.Wrapf(InvalidConfigurationError,
					"Enumeration choice %v should be a name", k)
			}
			mapping[i] = v_str
		}
	}

	if enum_options.Map != nil {
		for _, k := range enum_options.Map.Keys() {
			v, _ := enum_options.Map.Get(k)
			v_int, ok := to_int64(v)
			if !ok {
				return nil, errors.Wrapf(InvalidConfigurationError,
					"Enumeration map should map names to numbers (not %v)", v)
			}
			mapping[v_int] = k
		}
	}

	return self.labelled(enum_options.Type, enum_options.TypeOptions,
		&Enumeration{Choices: mapping})
}

// A copy of an integer primitive carrying labels.
func (self *Profile) labelled(type_name string,
	type_options *ordereddict.Dict, labels Labels) (Type, error) {
	t, err := self.GetType(type_name, type_options)
	if err != nil {
		return nil, err
	}

	primitive, ok := t.(*Primitive)
	if !ok || primitive.Kind == Float {
		return nil, errors.Wrapf(InvalidConfigurationError,
			"labels need an integer type, not %v", t.TypeName())
	}

	result := *primitive
	result.Labels = labels
	return &result, nil
}
