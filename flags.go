package hexite

import (
	"sort"
	"strings"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
)

// Accepts option bitmap: name (string) -> bit number
type FlagsOptions struct {
	Type        string            `hexite:"field=type,required"`
	TypeOptions *ordereddict.Dict `hexite:"field=type_options"`
	Bitmap      *ordereddict.Dict `hexite:"field=bitmap,required"`
}

type Flags struct {
	bits   []int64
	bitmap map[int64]string
}

func NewFlags(bitmap map[string]int64) (*Flags, error) {
	result := &Flags{bitmap: make(map[int64]string)}
	for name, idx := range bitmap {
		if idx < 0 || idx >= 64 {
			return nil, errors.Wrapf(InvalidConfigurationError,
				"flag %v: bit number %d should be between 0 and 63", name, idx)
		}

		result.bitmap[int64(1)<<idx] = name
		result.bits = append(result.bits, int64(1)<<idx)
	}
	return result, nil
}

// Label lists the names of the set bits, sorted for stable output.
func (self *Flags) Label(value int64) string {
	result := []string{}
	for _, bit := range self.bits {
		if bit&value != 0 {
			result = append(result, self.bitmap[bit])
		}
	}

	sort.Strings(result)
	return strings.Join(result, "|")
}

func (self *Profile) newFlags(options *ordereddict.Dict) (Type, error) {
	if options == nil {
		return nil, errors.Wrap(InvalidConfigurationError,
			"Flags requires a type in the options")
	}

	flag_options := &FlagsOptions{}
	err := ParseOptions(options, flag_options)
	if err != nil {
		return nil, errors.Wrap(err, "Flags")
	}

	bitmap := make(map[string]int64)
	for _, name := range flag_options.Bitmap.Keys() {
		idx_any, _ := flag_options.Bitmap.Get(name)
		idx, ok := to_int64(idx_any)
		if !ok {
			return nil, errors.Wrapf(InvalidConfigurationError,
				"flag %v needs a bit number", name)
		}
		bitmap[name] = idx
	}

	flags, err := NewFlags(bitmap)
	if err != nil {
		return nil, err
	}

	return self.labelled(flag_options.Type, flag_options.TypeOptions, flags)
}
