package main

import (
	"os"

	"go.uber.org/zap"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/hexite"
)

type CommandHandler func(command string) bool

var (
	app = kingpin.New("hexite",
		"Lazily decode binary files against a format definition.")

	debug_flag = app.Flag("debug", "Log decoding decisions to stderr.").Bool()

	command_handlers []CommandHandler
)

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *debug_flag {
		logger, err := zap.NewDevelopment()
		kingpin.FatalIfError(err, "Creating logger")
		defer logger.Sync()

		hexite.SetLogger(logger)
	}

	for _, command_handler := range command_handlers {
		if command_handler(command) {
			break
		}
	}
}
