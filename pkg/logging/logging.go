package logging

import (
	"io"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

// Setup routes apex/log output to w with the cli handler. verbose forces
// debug level regardless of the configured one.
func Setup(w io.Writer, level string, verbose bool) error {
	log.SetHandler(cli.New(w))

	if verbose {
		log.SetLevel(log.DebugLevel)
		return nil
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}
