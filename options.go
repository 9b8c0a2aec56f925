package hexite

import (
	"reflect"
	"sort"
	"strings"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
)

// Structs may tag fields with this name to control parsing.
const tagName = "hexite"

func getTag(field reflect.StructField) map[string]string {
	options := make(map[string]string)

	tag := field.Tag.Get(tagName)

	// Skip if tag is not defined or ignored
	if tag == "" || tag == "-" {
		return nil
	}

	directives := strings.Split(tag, ",")
	for _, directive := range directives {
		if strings.Contains(directive, "=") {
			components := strings.SplitN(directive, "=", 2)
			options[components[0]] = components[1]
		} else {
			options[directive] = "Y"
		}
	}

	return options
}

// ParseOptions fills the tagged fields of target from args. A field
// tagged with expression=Other accepts either a constant or an
// expression string, which is compiled into the *Expression field
// named Other.
func ParseOptions(args *ordereddict.Dict, target interface{}) error {
	v := reflect.ValueOf(target)
	t := v.Type()

	if t.Kind() == reflect.Ptr {
		v = v.Elem()
		t = v.Type()
	}

	if t.Kind() != reflect.Struct {
		return errors.New("Only structs can be set with ParseOptions()")
	}

	if args == nil {
		args = ordereddict.NewDict()
	}

	args_specified := make(map[string]bool)
	for _, k := range args.Keys() {
		args_specified[k] = true
	}

	for i := 0; i < v.NumField(); i++ {
		field_types_value := t.Field(i)
		options := getTag(field_types_value)
		if options == nil {
			continue
		}

		// Is the name specified in the tag?
		field_name, pres := options["field"]
		if !pres {
			field_name = field_types_value.Name
		}

		field_value := v.Field(i)
		if !field_value.IsValid() || !field_value.CanSet() {
			return errors.Errorf("Field %s is unsettable.", field_name)
		}

		field_data, pres := args.Get(field_name)
		if !pres {
			_, required := options["required"]
			if required {
				return errors.Wrapf(InvalidConfigurationError,
					"Field %v is required in %T", field_name, target)
			}
			continue
		}
		delete(args_specified, field_name)

		// Strings given to an expression field are compiled into
		// the companion field.
		target_field, pres := options["expression"]
		if str, ok := field_data.(string); pres && ok {
			expression_target := v.FieldByName(target_field)
			if !expression_target.IsValid() || !expression_target.CanSet() {
				return errors.Errorf(
					"field %v wants to store an expression in %v but this field does not exist",
					field_name, target_field)
			}

			expression, err := NewExpression(str)
			if err != nil {
				return errors.Wrapf(err, "field %v", field_name)
			}
			expression_target.Set(reflect.ValueOf(expression))
			continue
		}

		switch field_types_value.Type.String() {
		case "string":
			str, ok := field_data.(string)
			if ok {
				field_value.Set(reflect.ValueOf(str))
				continue
			}
			return errors.Wrapf(InvalidConfigurationError,
				"field %v: Expecting a string not %T", field_name, field_data)

		case "int64":
			a, ok := to_int64(field_data)
			if ok {
				field_value.Set(reflect.ValueOf(a))
				continue
			}
			return errors.Wrapf(InvalidConfigurationError,
				"field %v: Expecting an integer not %T", field_name, field_data)

		case "bool":
			a, ok := to_int64(field_data)
			if ok {
				field_value.Set(reflect.ValueOf(a > 0))
				continue
			}
			return errors.Wrapf(InvalidConfigurationError,
				"field %v: Expecting a bool not %T", field_name, field_data)

		case "*ordereddict.Dict":
			dict, ok := field_data.(*ordereddict.Dict)
			if ok {
				field_value.Set(reflect.ValueOf(dict))
				continue
			}
			return errors.Wrapf(InvalidConfigurationError,
				"field %v: Expecting a mapping not %T", field_name, field_data)

		default:
			return errors.Errorf("Unable to handle field type %v",
				field_types_value.Type.String())
		}
	}

	// Report any unexpected parameters
	if len(args_specified) > 0 {
		var extras []string
		for k := range args_specified {
			extras = append(extras, k)
		}
		sort.Strings(extras)
		return errors.Wrapf(InvalidConfigurationError,
			"Unexpected parameters provided: %v", extras)
	}

	return nil
}
