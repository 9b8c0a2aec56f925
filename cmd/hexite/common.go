package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"www.velocidex.com/golang/hexite"
)

// Open the data file and apply the format definition to it. The
// returned closer releases the file.
func openView(format_path, data_path string,
	options ...hexite.ViewOption) (*hexite.View, io.Closer, error) {
	definition, err := os.ReadFile(format_path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading format")
	}

	format, _, err := hexite.LoadFormat(definition)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "loading format %v", format_path)
	}

	fd, err := os.Open(data_path)
	if err != nil {
		return nil, nil, err
	}

	stat, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, nil, err
	}

	view, err := hexite.NewView(io.NewSectionReader(fd, 0, stat.Size()),
		format, options...)
	if err != nil {
		fd.Close()
		return nil, nil, err
	}

	hexite.Logger().Debug("opened view",
		zap.String("format", format.Name()),
		zap.String("file", data_path),
		zap.Int64("size", stat.Size()))

	return view, fd, nil
}

func formatValue(field *hexite.DecodedField) string {
	if field.Err != nil {
		return "<" + field.Err.Error() + ">"
	}
	if field.Value == nil {
		return ""
	}

	primitive, ok := field.Type.(*hexite.Primitive)
	if ok {
		label, ok := primitive.Label(field.Value)
		if ok {
			return fmt.Sprintf("%v (%v)", label, field.Value)
		}
	}

	switch t := field.Value.(type) {
	case uint64:
		return fmt.Sprintf("%#x (%d)", t, t)
	}
	return fmt.Sprintf("%v", field.Value)
}

func formatRow(field *hexite.DecodedField) string {
	depth := field.Path.Len() - 1
	return fmt.Sprintf("%#08x %6d  %s%-24s %s", field.Offset, field.Length,
		strings.Repeat("  ", depth), field.Path.Elements()[depth].Name+
			indexSuffix(field.Path.Elements()[depth]),
		formatValue(field))
}

func indexSuffix(element hexite.PathElement) string {
	if element.Index < 0 {
		return ""
	}
	return fmt.Sprintf("[%d]", element.Index)
}

func reportErrors(result *hexite.QueryResult) {
	for _, err := range result.Errors {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
