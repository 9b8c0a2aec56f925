package hexite

import (
	"github.com/Velocidex/ordereddict"
	"github.com/Velocidex/yaml"
	"github.com/pkg/errors"
)

type FieldDefinition struct {
	Name string

	// Offset within the struct
	Offset int64

	// Alternatively offset may be given as an expression.
	OffsetExpression string

	// Name of the type of this field.
	Type string

	// Options to the type
	Options *ordereddict.Dict
}

type StructDefinition struct {
	Name           string
	Size           int64
	SizeExpression string
	Fields         []*FieldDefinition

	// align, union
	Options *ordereddict.Dict
}

// A FormatDefinition describes a whole format: the structs it uses
// and the top level children laid over the buffer.
type FormatDefinition struct {
	Name     string              `json:"name" yaml:"name"`
	Union    bool                `json:"union" yaml:"union"`
	Structs  []*StructDefinition `json:"structs" yaml:"structs"`
	Children []*FieldDefinition  `json:"children" yaml:"children"`
}

type SliceOptions struct {
	Type            string            `hexite:"field=type,required"`
	TypeOptions     *ordereddict.Dict `hexite:"field=type_options"`
	Count           int64             `hexite:"field=count,expression=CountExpression"`
	CountExpression *Expression
	MaxCount        int64 `hexite:"field=max_count"`
	Name            string `hexite:"field=name"`
}

type StructOptions struct {
	Align int64 `hexite:"field=align"`
	Union bool  `hexite:"field=union"`
}

// A Profile is a registry of named types.
type Profile struct {
	types map[string]Type
}

func NewProfile() *Profile {
	result := Profile{
		types: make(map[string]Type),
	}

	return &result
}

func (self *Profile) AddType(type_name string, t Type) {
	self.types[type_name] = t
}

// GetType resolves a type by name. "Array" builds a new Slice from
// its options, "Enumeration" and "Flags" label an integer type.
func (self *Profile) GetType(name string, options *ordereddict.Dict) (Type, error) {
	switch name {
	case "Array":
		return self.newSlice(options)
	case "Enumeration":
		return self.newEnumeration(options)
	case "Flags":
		return self.newFlags(options)
	}

	t, pres := self.types[name]
	if !pres {
		return nil, errors.Wrapf(NotFoundError, "type %v", name)
	}
	return t, nil
}

func (self *Profile) newSlice(options *ordereddict.Dict) (Type, error) {
	if options == nil {
		return nil, errors.Wrap(InvalidConfigurationError,
			"Array requires a type in the options")
	}

	slice_options := &SliceOptions{}
	err := ParseOptions(options, slice_options)
	if err != nil {
		return nil, errors.Wrap(err, "Array")
	}

	element, err := self.GetType(slice_options.Type, slice_options.TypeOptions)
	if err != nil {
		return nil, errors.Wrap(err, "Array")
	}

	return &Slice{
		Name:            slice_options.Name,
		Element:         element,
		Count:           slice_options.Count,
		CountExpression: slice_options.CountExpression,
		MaxCount:        slice_options.MaxCount,
	}, nil
}

// ObjectSize computes the size of a named type at ctx.Offset.
func (self *Profile) ObjectSize(name string, ctx SizeContext) (int64, error) {
	t, err := self.GetType(name, nil)
	if err != nil {
		return 0, err
	}
	return Size(t, ctx)
}

// Build the profile from struct definitions:
//
//	[
//	  ["Header", 8, [
//	     ["Magic", 0, "uint32"],
//	     ["Count", 4, "uint32"]
//	  ]],
//	  ["Entry", "x => 4 + x.Length", [
//	     ["Length", 0, "uint32"],
//	     ["Data", 4, "Array", {"type": "uint8", "count": "Length"}]
//	  ], {"align": 4}]
//	]
func (self *Profile) ParseStructDefinitions(definitions string) error {
	var profile_definitions []*StructDefinition

	err := yaml.Unmarshal([]byte(definitions), &profile_definitions)
	if err != nil {
		return err
	}

	return self.AddStructDefinitions(profile_definitions)
}

func (self *Profile) AddStructDefinitions(definitions []*StructDefinition) error {
	// Register every struct before resolving fields so fields may
	// refer to structs defined later.
	structs := make([]*Struct, 0, len(definitions))
	for _, struct_def := range definitions {
		struct_type := NewStruct(struct_def.Name, struct_def.Size)

		if struct_def.SizeExpression != "" {
			expression, err := NewExpression(struct_def.SizeExpression)
			if err != nil {
				return errors.Wrapf(err, "struct definition %v size expression",
					struct_def.Name)
			}
			struct_type.SizeExpression = expression
		}

		if struct_def.Options != nil {
			options := &StructOptions{}
			err := ParseOptions(struct_def.Options, options)
			if err != nil {
				return errors.Wrapf(err, "struct definition %v", struct_def.Name)
			}
			struct_type.Align = options.Align
			struct_type.Union = options.Union
		}

		self.types[struct_def.Name] = struct_type
		structs = append(structs, struct_type)
	}

	for idx, struct_def := range definitions {
		for _, field_def := range struct_def.Fields {
			field, err := self.newField(field_def)
			if err != nil {
				return errors.Wrapf(err, "struct %v field '%v'",
					struct_def.Name, field_def.Name)
			}
			structs[idx].fields = append(structs[idx].fields, field)
		}
	}

	return nil
}

func (self *Profile) newField(field_def *FieldDefinition) (*Field, error) {
	t, err := self.GetType(field_def.Type, field_def.Options)
	if err != nil {
		return nil, err
	}

	field := &Field{
		Name:   field_def.Name,
		Offset: field_def.Offset,
		Type:   t,
	}

	if field_def.OffsetExpression != "" {
		field.OffsetExpression, err = NewExpression(field_def.OffsetExpression)
		if err != nil {
			return nil, errors.Wrap(err, "offset")
		}
	}

	return field, nil
}

// NewFormat builds a Format from a definition, registering its
// structs in this profile.
func (self *Profile) NewFormat(definition *FormatDefinition) (*Format, error) {
	err := self.AddStructDefinitions(definition.Structs)
	if err != nil {
		return nil, err
	}

	var options []FormatOption
	if definition.Union {
		options = append(options, WithUnionLayout())
	}
	result := NewFormat(definition.Name, options...)

	for _, child_def := range definition.Children {
		if child_def.OffsetExpression != "" {
			return nil, errors.Wrapf(InvalidConfigurationError,
				"format %v child %v: top level offsets must be constant",
				definition.Name, child_def.Name)
		}

		t, err := self.GetType(child_def.Type, child_def.Options)
		if err != nil {
			return nil, errors.Wrapf(err, "format %v child %v",
				definition.Name, child_def.Name)
		}

		err = result.AddNamedChild(child_def.Name, child_def.Offset, t)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// LoadFormat parses a YAML (or JSON) format definition against a
// profile holding the built in model.
func LoadFormat(definition []byte) (*Format, *Profile, error) {
	format_definition := &FormatDefinition{}
	err := yaml.Unmarshal(definition, format_definition)
	if err != nil {
		return nil, nil, err
	}

	profile := NewProfile()
	AddModel(profile)

	format, err := profile.NewFormat(format_definition)
	if err != nil {
		return nil, nil, err
	}

	return format, profile, nil
}
