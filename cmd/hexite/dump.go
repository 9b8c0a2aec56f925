package main

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/vmihailenco/msgpack/v5"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/hexite"
)

var (
	dump_command = app.Command(
		"dump", "Decode the fields in a byte range.")

	dump_command_format = dump_command.Arg(
		"format", "Format definition (YAML or JSON)").Required().String()

	dump_command_file = dump_command.Arg(
		"file", "File to decode").Required().String()

	dump_command_start = dump_command.Flag(
		"start", "First byte of the range").Default("0").Int64()

	dump_command_end = dump_command.Flag(
		"end", "End of the range (default: the whole format)").Int64()

	dump_command_output = dump_command.Flag(
		"output", "Output encoding").Default("text").
		Enum("text", "json", "msgpack", "spew")
)

func doDump() {
	view, closer, err := openView(*dump_command_format, *dump_command_file)
	kingpin.FatalIfError(err, "Opening")
	defer closer.Close()

	end := *dump_command_end
	if end == 0 {
		end, err = view.Size()
		kingpin.FatalIfError(err, "Sizing format")
	}

	result, err := view.Query(*dump_command_start, end)
	kingpin.FatalIfError(err, "Query")

	switch *dump_command_output {
	case "json":
		serialized, err := json.MarshalIndent(result.Fields, "", " ")
		kingpin.FatalIfError(err, "Encoding")
		fmt.Println(string(serialized))

	case "msgpack":
		rows := make([]map[string]interface{}, 0, len(result.Fields))
		for _, field := range result.Fields {
			row := field.Row()
			item := make(map[string]interface{})
			for _, k := range row.Keys() {
				item[k], _ = row.Get(k)
			}
			rows = append(rows, item)
		}

		encoder := msgpack.NewEncoder(os.Stdout)
		encoder.SetSortMapKeys(true)
		kingpin.FatalIfError(encoder.Encode(rows), "Encoding")

	case "spew":
		hexite.Debug(result)

	default:
		for _, field := range result.Fields {
			fmt.Println(formatRow(field))
		}
	}

	reportErrors(result)
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case dump_command.FullCommand():
			doDump()
		default:
			return false
		}
		return true
	})
}
