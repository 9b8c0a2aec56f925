package hexite

import "sort"

type sizeKey struct {
	t      Type
	offset int64

	// Slices are also keyed by their resolved count.
	count int64
}

type elementKey struct {
	slice *Slice
	base  int64
}

// decodeCache remembers dynamic sizes and the start offsets of
// dynamically sized slice elements. It belongs to a single View and
// is not safe for concurrent use. A nil cache is valid and remembers
// nothing.
type decodeCache struct {
	sizes map[sizeKey]int64

	// element_starts[key][i] is the start of element i. Element 0
	// always starts at the slice base.
	element_starts map[elementKey][]int64
}

func newDecodeCache() *decodeCache {
	return &decodeCache{
		sizes:          make(map[sizeKey]int64),
		element_starts: make(map[elementKey][]int64),
	}
}

func (self *decodeCache) size(key sizeKey) (int64, bool) {
	if self == nil {
		return 0, false
	}
	size, pres := self.sizes[key]
	return size, pres
}

func (self *decodeCache) setSize(key sizeKey, size int64) {
	if self == nil {
		return
	}
	self.sizes[key] = size
}

// nearestElement returns the highest known element index not after
// index, and where it starts.
func (self *decodeCache) nearestElement(
	slice *Slice, base int64, index int64) (int64, int64) {
	if self == nil {
		return 0, base
	}

	starts := self.element_starts[elementKey{slice, base}]
	if len(starts) == 0 {
		return 0, base
	}

	i := int64(len(starts) - 1)
	if i > index {
		i = index
	}
	return i, starts[i]
}

// elementAt returns the index of the last known element starting at
// or before offset.
func (self *decodeCache) elementAt(
	slice *Slice, base int64, offset int64) (int64, int64) {
	if self == nil {
		return 0, base
	}

	starts := self.element_starts[elementKey{slice, base}]
	if len(starts) == 0 {
		return 0, base
	}

	i := sort.Search(len(starts), func(i int) bool {
		return starts[i] > offset
	}) - 1
	if i < 0 {
		return 0, base
	}
	return int64(i), starts[i]
}

func (self *decodeCache) recordElement(
	slice *Slice, base int64, index int64, start int64) {
	if self == nil {
		return
	}

	key := elementKey{slice, base}
	starts := self.element_starts[key]
	if len(starts) == 0 {
		starts = append(starts, base)
	}

	// Only extend the contiguous prefix.
	if int64(len(starts)) == index {
		self.element_starts[key] = append(starts, start)
	} else if len(self.element_starts[key]) == 0 {
		self.element_starts[key] = starts
	}
}

func (self *decodeCache) reset() {
	if self == nil {
		return
	}
	self.sizes = make(map[sizeKey]int64)
	self.element_starts = make(map[elementKey][]int64)
}
