package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/hexite"
)

var (
	eval_command = app.Command(
		"eval", "Evaluate a lambda against a decoded module.")

	eval_command_format = eval_command.Arg(
		"format", "Format definition (YAML or JSON)").Required().String()

	eval_command_file = eval_command.Arg(
		"file", "File to decode").Required().String()

	eval_command_module = eval_command.Arg(
		"module", "Top level child, or the format name for everything").
		Required().String()

	eval_command_query = eval_command.Arg(
		"query", "Lambda, e.g. 'x => x.Header.Count'").Required().String()
)

func doEval() {
	view, closer, err := openView(*eval_command_format, *eval_command_file)
	kingpin.FatalIfError(err, "Opening")
	defer closer.Close()

	var evaluator hexite.Evaluator = hexite.NewVQLEvaluator(view)
	kingpin.FatalIfError(evaluator.Load(*eval_command_module), "Load")

	value, err := evaluator.Query(*eval_command_query)
	kingpin.FatalIfError(err, "Query")

	serialized, err := json.MarshalIndent(value, "", " ")
	kingpin.FatalIfError(err, "Encoding")
	fmt.Println(string(serialized))
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case eval_command.FullCommand():
			doEval()
		default:
			return false
		}
		return true
	})
}
