package main

import (
	"io"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/problame/forward-as-attachment-mta/config"
	"github.com/problame/forward-as-attachment-mta/logging"
	"github.com/problame/forward-as-attachment-mta/parser"
	"github.com/problame/forward-as-attachment-mta/utils"
	"github.com/problame/forward-as-attachment-mta/wrapper"
)

// DumpWrapper is submit without the network: read stdin, build the exact
// wrapper message, write its bytes to stdout. Takes the same sendmail
// arguments as submit, so an operator can inspect what a given invocation
// would relay.
func DumpWrapper(c *cli.Context) error {
	args, smargs, err := sendmailPrologue(c)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(args)

	cfg, src, err := config.Load(args.ConfigFile)
	if err != nil {
		logger.Crit("Configuration unusable", "error", err)
		return cli.NewExitError(err.Error(), ExConfig)
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		rerr := &parser.MalformedInputError{Err: err}
		logger.Crit("Failed to read the original message", "error", rerr)
		return cli.NewExitError(rerr.Error(), exitCode(rerr))
	}

	parsed := parser.Parse(raw)
	out, err := wrapper.Build(parsed, smargs, cfg, src, utils.Identity(), time.Now())
	if err != nil {
		logger.Crit("Failed to build the wrapper message", "error", err)
		return cli.NewExitError(err.Error(), ExSoftware)
	}

	if _, err := os.Stdout.Write(out.Data); err != nil {
		logger.Crit("Failed to write the wrapper message", "error", err)
		return cli.NewExitError(err.Error(), ExIOErr)
	}
	logger.Debug("Dumped wrapper message", "size", len(out.Data), "envelope_from", out.EnvelopeFrom, "envelope_to", out.EnvelopeTo)
	return nil
}
