package main

import (
	"io"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/problame/forward-as-attachment-mta/arguments"
	"github.com/problame/forward-as-attachment-mta/config"
	"github.com/problame/forward-as-attachment-mta/logging"
	"github.com/problame/forward-as-attachment-mta/metrics"
	"github.com/problame/forward-as-attachment-mta/parser"
	"github.com/problame/forward-as-attachment-mta/relay"
	"github.com/problame/forward-as-attachment-mta/utils"
	"github.com/problame/forward-as-attachment-mta/wrapper"
)

// Submit is the sendmail mode: interpret the argument vector, read the
// original message from stdin, wrap it, relay it. One message, one
// transaction, one exit code. Everything runs on the calling goroutine;
// there is nothing here worth a second one.
func Submit(c *cli.Context) error {
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

	id := utils.Identity()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		rerr := &parser.MalformedInputError{Err: err}
		logger.Crit("Failed to read the original message", "error", rerr)
		return cli.NewExitError(rerr.Error(), exitCode(rerr))
	}
	metrics.M().MessageSize.Set(float64(len(raw)))

	parsed := parser.Parse(raw)
	logger.Debug("Parsed original message", "size", len(raw), "recognized", parsed.Recognized, "fields", len(parsed.Fields))

	out, err := wrapper.Build(parsed, smargs, cfg, src, id, time.Now())
	if err != nil {
		logger.Crit("Failed to build the wrapper message", "error", err)
		return cli.NewExitError(err.Error(), ExSoftware)
	}
	logger.Debug("Built wrapper message", "size", len(out.Data), "envelope_from", out.EnvelopeFrom, "envelope_to", out.EnvelopeTo)

	client := &relay.Client{
		Config: cfg,
		Logger: logger,
		Hello:  id.Hostname,
	}
	res, err := client.Send(out)
	if err != nil {
		metrics.M().Submissions.WithLabelValues("failure").Inc()
		metrics.M().RelayFailures.WithLabelValues(relay.FailedState(err).String()).Inc()
		metrics.M().Push(cfg.MetricsGateway, logger)
		logger.Crit("Relay transaction failed", "state", relay.FailedState(err).String(), "error", err)
		return cli.NewExitError(err.Error(), exitCode(err))
	}
	metrics.M().Submissions.WithLabelValues("success").Inc()
	metrics.M().Push(cfg.MetricsGateway, logger)
	logger.Info("Message relayed", "elapsed", res.Duration)
	return nil
}

// sendmailPrologue interprets flags and the sendmail argument vector for
// the actions that impersonate sendmail.
func sendmailPrologue(c *cli.Context) (*arguments.Args, *arguments.SendmailArgs, error) {
	args, err := arguments.GetArgs(c)
	if err != nil {
		return nil, nil, cli.NewExitError(err.Error(), ExUsage)
	}

	// reconstruct the vector the daemon actually exec'd: our own command
	// word is not part of the sendmail dialect
	rawArgv := append([]string{os.Args[0]}, c.Args()...)
	smargs := new(arguments.SendmailArgs)
	if err := smargs.Populate(rawArgv); err != nil {
		return nil, nil, cli.NewExitError(err.Error(), ExUsage)
	}
	if err := smargs.Verify(); err != nil {
		return nil, nil, cli.NewExitError(err.Error(), ExUsage)
	}
	if smargs.Verbose {
		args.Logging.LogLevel = "debug"
	}
	return args, smargs, nil
}
