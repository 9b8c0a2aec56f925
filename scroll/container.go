// Package scroll computes which slice of a long list of items has to
// be rendered for a given scroll position.
//
//	┌ scroll position / offset
//	│  ┌╌╌╌╌╌╌╌╌╌┐
//	│  ╎         ╎ "virtual" content before rendered content
//	│  ╎         ╎
//	│  ├─────────┤
//	│  │         │ rendered content outside viewport (before)
//	↓  │         │
//	┏━━┿━━━━━━━━━┿━━┓ viewport
//	┃  │         │  ┃
//	┃  │         │  ┃  rendered content inside viewport
//	┃  │         │  ┃
//	┗━━┿━━━━━━━━━┿━━┛
//	   │         │
//	   │         │ rendered content outside viewport (after)
//	   ├─────────┤
//	   ╎         ╎
//	   ╎         ╎ "virtual" content after rendered content
//	   └╌╌╌╌╌╌╌╌╌┘
//
// Items are only assumed to have an average size, so every update is
// O(1). The container knows nothing about formats or buffers: callers
// translate the item range into bytes themselves.
package scroll

import (
	"errors"
	"fmt"
	"math"
)

var InvalidConfigurationError = errors.New("InvalidConfiguration")

// Chunks rendered: one before the viewport, one inside, one after.
const renderedChunks = 3

type ItemRange struct {
	Start int64
	End   int64
}

func (self ItemRange) Len() int64 {
	return self.End - self.Start
}

func (self ItemRange) String() string {
	return fmt.Sprintf("[%d, %d)", self.Start, self.End)
}

type LayoutUpdate struct {
	// Space taken by the unrendered items before ItemRange.
	VirtualBefore int64
	ItemRange     ItemRange
	// Space taken by the unrendered items after ItemRange.
	VirtualAfter int64
}

type Container struct {
	num_items         int64
	average_item_size int64

	viewport_size   int64
	items_per_chunk int64
	rendered_items  int64

	scroll_position int64
}

func New(num_items, average_item_size int64) (*Container, error) {
	if average_item_size <= 0 {
		return nil, fmt.Errorf("%w: average item size must be positive, got %d",
			InvalidConfigurationError, average_item_size)
	}

	if num_items < 0 {
		return nil, fmt.Errorf("%w: negative item count %d",
			InvalidConfigurationError, num_items)
	}

	if num_items > math.MaxInt64/average_item_size {
		return nil, fmt.Errorf("%w: %d items of %d overflow",
			InvalidConfigurationError, num_items, average_item_size)
	}

	result := &Container{
		num_items:         num_items,
		average_item_size: average_item_size,
	}

	// Until the first resize the viewport holds a single item.
	result.OnResize(average_item_size)
	return result, nil
}

func (self *Container) NumItems() int64 {
	return self.num_items
}

func (self *Container) AverageItemSize() int64 {
	return self.average_item_size
}

func (self *Container) ViewportSize() int64 {
	return self.viewport_size
}

func (self *Container) ItemsPerChunk() int64 {
	return self.items_per_chunk
}

func (self *Container) RenderedItems() int64 {
	return self.rendered_items
}

func (self *Container) ScrollPosition() int64 {
	return self.scroll_position
}

// TotalSize is the estimated size of all items, i.e. the scrollable
// extent.
func (self *Container) TotalSize() int64 {
	return self.num_items * self.average_item_size
}

func (self *Container) OnResize(viewport_size int64) {
	if viewport_size < 0 {
		viewport_size = 0
	}

	self.viewport_size = viewport_size
	self.items_per_chunk = roundingDiv(viewport_size, self.average_item_size)
	if self.items_per_chunk < 1 {
		self.items_per_chunk = 1
	}

	// min(3 * items_per_chunk, num_items) without overflowing.
	if self.items_per_chunk > self.num_items/renderedChunks {
		self.rendered_items = self.num_items
	} else {
		self.rendered_items = self.items_per_chunk * renderedChunks
	}
}

func (self *Container) OnScroll(scroll_position int64) LayoutUpdate {
	if scroll_position < 0 {
		scroll_position = 0
	}
	self.scroll_position = scroll_position

	return self.Query()
}

// Query computes the layout for the current state without changing
// it.
func (self *Container) Query() LayoutUpdate {
	item_at_position := roundingDiv(self.scroll_position, self.average_item_size)
	chunk_at_position := roundingDiv(item_at_position, self.items_per_chunk)

	first_chunk := chunk_at_position - 1
	if first_chunk < 0 {
		first_chunk = 0
	}

	first_item := self.num_items
	if first_chunk <= self.num_items/self.items_per_chunk {
		first_item = first_chunk * self.items_per_chunk
	}
	if first_item > self.num_items {
		first_item = self.num_items
	}

	last_item := self.num_items
	if self.num_items-first_item > self.rendered_items {
		last_item = first_item + self.rendered_items
	}

	return LayoutUpdate{
		VirtualBefore: first_item * self.average_item_size,
		ItemRange:     ItemRange{Start: first_item, End: last_item},
		VirtualAfter:  (self.num_items - last_item) * self.average_item_size,
	}
}

// Integer division rounding to nearest, ties up. a and b are never
// negative here.
func roundingDiv(a, b int64) int64 {
	// Same as (a + b/2) / b without overflowing a + b/2.
	if a%b >= b-b/2 {
		return a/b + 1
	}
	return a / b
}
