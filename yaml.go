package hexite

import (
	"errors"
	"fmt"

	"github.com/Velocidex/ordereddict"
)

// [name, size, [fields...], options?]
func (self *StructDefinition) UnmarshalYAML(unmarshal func(v interface{}) error) error {
	var values []interface{}
	err := unmarshal(&values)
	if err != nil {
		return err
	}

	if len(values) != 3 && len(values) != 4 {
		return errors.New("Struct Definition should be [name, size, fields, options?]")
	}

	ok := false
	self.Name, ok = values[0].(string)
	if !ok {
		return errors.New("Name should be a string")
	}

	size, ok := to_int64(values[1])
	if ok {
		self.Size = size

	} else {
		self.SizeExpression, ok = values[1].(string)
		if !ok {
			return errors.New("Size should be a string or integer")
		}
	}

	fields, ok := values[2].([]interface{})
	if !ok {
		return errors.New("Fields should be a list of field definitions")
	}

	for _, field_def := range fields {
		new_field, err := parseFieldDefinition(self.Name, field_def)
		if err != nil {
			return err
		}
		self.Fields = append(self.Fields, new_field)
	}

	if len(values) == 4 {
		option_map, ok := values[3].(map[interface{}]interface{})
		if !ok {
			return fmt.Errorf("%v: struct options should be a map", self.Name)
		}
		self.Options, err = to_ordereddict(option_map)
		if err != nil {
			return fmt.Errorf("%v: struct options %v", self.Name, err)
		}
	}

	return nil
}

// [name, offset, type, options?]
func (self *FieldDefinition) UnmarshalYAML(unmarshal func(v interface{}) error) error {
	var values interface{}
	err := unmarshal(&values)
	if err != nil {
		return err
	}

	field, err := parseFieldDefinition("", values)
	if err != nil {
		return err
	}
	*self = *field
	return nil
}

func parseFieldDefinition(struct_name string, field_def interface{}) (*FieldDefinition, error) {
	field, ok := field_def.([]interface{})
	if !ok || (len(field) != 3 && len(field) != 4) {
		return nil, fmt.Errorf("%v: Field Definition should be [name, offset, type, options?]",
			struct_name)
	}

	new_field := &FieldDefinition{}
	new_field.Name, ok = field[0].(string)
	if !ok {
		return nil, fmt.Errorf("%v: field name should be a string", struct_name)
	}

	offset, ok := to_int64(field[1])
	if ok {
		new_field.Offset = offset

	} else {
		new_field.OffsetExpression, ok = field[1].(string)
		if !ok {
			return nil, fmt.Errorf("%v: field %v offset should be a string or int",
				struct_name, new_field.Name)
		}
	}

	new_field.Type, ok = field[2].(string)
	if !ok {
		return nil, fmt.Errorf("%v: field %v type should be a string",
			struct_name, new_field.Name)
	}

	if len(field) == 4 {
		option_map, ok := field[3].(map[interface{}]interface{})
		if !ok {
			return nil, fmt.Errorf("%v: field %v options should be a map",
				struct_name, new_field.Name)
		}
		options, err := to_ordereddict(option_map)
		if err != nil {
			return nil, fmt.Errorf("%v: field %v options %v",
				struct_name, new_field.Name, err)
		}
		new_field.Options = options
	}

	return new_field, nil
}

func to_ordereddict(dict map[interface{}]interface{}) (*ordereddict.Dict, error) {
	var err error
	result := ordereddict.NewDict()
	for k, v := range dict {
		// Enumeration choices are keyed by number.
		opt_name, ok := k.(string)
		if !ok {
			opt_name = fmt.Sprintf("%v", k)
		}
		v_dict, ok := v.(map[interface{}]interface{})
		if ok {
			v, err = to_ordereddict(v_dict)
			if err != nil {
				return nil, err
			}
		}
		result.Set(opt_name, v)
	}

	return result, nil
}
