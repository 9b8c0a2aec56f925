package main

import (
	"fmt"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/hexite/scroll"
)

var (
	layout_command = app.Command(
		"layout", "Show which elements of a slice a scroll position renders.")

	layout_command_format = layout_command.Arg(
		"format", "Format definition (YAML or JSON)").Required().String()

	layout_command_file = layout_command.Arg(
		"file", "File to decode").Required().String()

	layout_command_slice = layout_command.Arg(
		"slice", "Name of a top level slice").Required().String()

	layout_command_viewport = layout_command.Flag(
		"viewport", "Viewport size in bytes").Default("1024").Int64()

	layout_command_position = layout_command.Flag(
		"position", "Scroll position in bytes").Default("0").Int64()

	layout_command_decode = layout_command.Flag(
		"decode", "Also decode the rendered elements").Bool()
)

func doLayout() {
	view, closer, err := openView(*layout_command_format, *layout_command_file)
	kingpin.FatalIfError(err, "Opening")
	defer closer.Close()

	extent, err := view.SliceExtent(*layout_command_slice)
	kingpin.FatalIfError(err, "Slice")

	average := extent.AverageElementSize()
	if average < 1 {
		average = 1
	}

	container, err := scroll.New(extent.Count, average)
	kingpin.FatalIfError(err, "Container")

	container.OnResize(*layout_command_viewport)
	update := container.OnScroll(*layout_command_position)

	start, end, err := view.SliceSpan(*layout_command_slice,
		update.ItemRange.Start, update.ItemRange.End)
	kingpin.FatalIfError(err, "Span")

	fmt.Printf("Slice %v: %d elements at %#x, %d bytes (about %d each)\n",
		*layout_command_slice, extent.Count, extent.Start, extent.Size, average)
	fmt.Printf("Items per chunk %d, rendered %d\n",
		container.ItemsPerChunk(), container.RenderedItems())
	fmt.Printf("Virtual before %d\nItems %v at bytes [%#x, %#x)\nVirtual after %d\n",
		update.VirtualBefore, update.ItemRange, start, end, update.VirtualAfter)

	if !*layout_command_decode {
		return
	}

	result, err := view.Query(start, end)
	kingpin.FatalIfError(err, "Query")

	for _, field := range result.Fields {
		fmt.Println(formatRow(field))
	}
	reportErrors(result)
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case layout_command.FullCommand():
			doLayout()
		default:
			return false
		}
		return true
	})
}
