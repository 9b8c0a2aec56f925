package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/hexite"
	"www.velocidex.com/golang/hexite/scroll"
)

var (
	browse_command = app.Command(
		"browse", "Scroll through a large slice interactively.")

	browse_command_format = browse_command.Arg(
		"format", "Format definition (YAML or JSON)").Required().String()

	browse_command_file = browse_command.Arg(
		"file", "File to decode").Required().String()

	browse_command_slice = browse_command.Arg(
		"slice", "Name of a top level slice").Required().String()
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Lines taken by the title, status and help.
const browseChrome = 4

// Every element is rendered as one line, so the container works in
// lines rather than bytes.
type browseModel struct {
	view   *hexite.View
	slice  string
	extent *hexite.SliceExtent

	container *scroll.Container
	update    scroll.LayoutUpdate

	// Summaries of the rendered elements by index.
	lines map[int64]string
	err   error
}

func newBrowseModel(view *hexite.View, slice string) (*browseModel, error) {
	extent, err := view.SliceExtent(slice)
	if err != nil {
		return nil, err
	}

	container, err := scroll.New(extent.Count, 1)
	if err != nil {
		return nil, err
	}

	result := &browseModel{
		view:      view,
		slice:     slice,
		extent:    extent,
		container: container,
	}
	result.refresh()
	return result, nil
}

func (self *browseModel) refresh() {
	self.update = self.container.Query()
	self.lines = make(map[int64]string)
	self.err = nil

	item_range := self.update.ItemRange
	if item_range.Len() == 0 {
		return
	}

	start, end, err := self.view.SliceSpan(self.slice,
		item_range.Start, item_range.End)
	if err != nil {
		self.err = err
		return
	}

	result, err := self.view.Query(start, end)
	if err != nil {
		self.err = err
		return
	}

	members := make(map[int64][]string)
	offsets := make(map[int64]int64)
	for _, field := range result.Fields {
		elements := field.Path.Elements()
		if len(elements) < 2 || elements[1].Index < 0 {
			continue
		}
		idx := elements[1].Index

		if len(elements) == 2 {
			offsets[idx] = field.Offset
		}

		if field.Value == nil && field.Err == nil {
			continue
		}

		var name []string
		for _, element := range elements[2:] {
			name = append(name, element.Name+indexSuffix(element))
		}
		members[idx] = append(members[idx],
			fmt.Sprintf("%s=%s", strings.Join(name, "."), formatValue(field)))
	}

	for idx := item_range.Start; idx < item_range.End; idx++ {
		self.lines[idx] = offsetStyle.Render(fmt.Sprintf("%#08x", offsets[idx])) +
			" " + strings.Join(members[idx], " ")
	}
}

func (self *browseModel) scrollTo(position int64) {
	last := self.container.TotalSize() - self.container.ViewportSize()
	if position > last {
		position = last
	}
	if position < 0 {
		position = 0
	}
	self.container.OnScroll(position)
	self.refresh()
}

func (self *browseModel) Init() tea.Cmd {
	return nil
}

func (self *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	position := self.container.ScrollPosition()
	page := self.container.ViewportSize()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := int64(msg.Height - browseChrome)
		if height < 1 {
			height = 1
		}
		self.container.OnResize(height)
		self.scrollTo(position)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return self, tea.Quit

		case "up", "k":
			self.scrollTo(position - 1)

		case "down", "j":
			self.scrollTo(position + 1)

		case "pgup", "b":
			self.scrollTo(position - page)

		case "pgdown", " ":
			self.scrollTo(position + page)

		case "home", "g":
			self.scrollTo(0)

		case "end", "G":
			self.scrollTo(self.container.TotalSize())
		}
	}

	return self, nil
}

func (self *browseModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("hexite"))
	fmt.Fprintf(&b, " %s: %d elements at %#x\n", self.slice,
		self.extent.Count, self.extent.Start)

	fmt.Fprintf(&b, "rendered %v, %d lines before, %d after\n",
		self.update.ItemRange, self.update.VirtualBefore, self.update.VirtualAfter)

	if self.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", self.err)))
		b.WriteString("\n")
	}

	// Only the part of the rendered range inside the viewport is
	// drawn.
	first := self.container.ScrollPosition()
	last := first + self.container.ViewportSize()
	for idx := first; idx < last; idx++ {
		line, pres := self.lines[idx]
		if !pres {
			continue
		}
		fmt.Fprintf(&b, "[%6d] %s\n", idx, line)
	}

	b.WriteString(helpStyle.Render("↑/↓ scroll • pgup/pgdn page • g/G ends • q quit"))
	return b.String()
}

func doBrowse() {
	view, closer, err := openView(*browse_command_format, *browse_command_file)
	kingpin.FatalIfError(err, "Opening")
	defer closer.Close()

	model, err := newBrowseModel(view, *browse_command_slice)
	kingpin.FatalIfError(err, "Slice")

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	kingpin.FatalIfError(err, "Browse")
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case browse_command.FullCommand():
			doBrowse()
		default:
			return false
		}
		return true
	})
}
