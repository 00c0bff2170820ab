package main

import (
	"github.com/urfave/cli"

	"github.com/problame/forward-as-attachment-mta/arguments"
	"github.com/problame/forward-as-attachment-mta/config"
	"github.com/problame/forward-as-attachment-mta/logging"
	"github.com/problame/forward-as-attachment-mta/relay"
	"github.com/problame/forward-as-attachment-mta/utils"
)

// Check validates the configuration the way submit would and reports what
// it finds. With --probe it also walks the relay transaction up to a
// successful AUTH and quits, so a deployment can be verified without
// sending mail.
func Check(c *cli.Context) error {
	args, err := arguments.GetArgs(c)
	if err != nil {
		return cli.NewExitError(err.Error(), ExUsage)
	}
	logger := logging.NewLogger(args)

	cfg, src, err := config.Load(args.ConfigFile)
	if err != nil {
		logger.Crit("Configuration unusable", "error", err)
		return cli.NewExitError(err.Error(), ExConfig)
	}
	host, port := cfg.HostPort()
	logger.Info("Configuration loaded",
		"path", src.Path,
		"relay_host", host,
		"relay_port", port,
		"sender", cfg.SenderEmail,
		"recipient", cfg.RecipientEmail,
		"timeout", cfg.Timeout(),
	)
	if src.TooLax() {
		logger.Warn("Config file contains SMTP credentials and has too-lax permissions", "mode", src.Mode.Perm().String())
	}

	id := utils.Identity()
	logger.Info("Local identity",
		"hostname", id.Hostname,
		"uid", id.UID,
		"gid", id.GID,
		"euid", id.EUID,
		"egid", id.EGID,
		"username", id.Username,
		"groupname", id.Groupname,
		"platform", id.Platform,
	)

	if c.Bool("probe") {
		client := &relay.Client{Config: cfg, Logger: logger, Hello: id.Hostname}
		if err := client.Probe(); err != nil {
			logger.Crit("Relay probe failed", "state", relay.FailedState(err).String(), "error", err)
			return cli.NewExitError(err.Error(), exitCode(err))
		}
		logger.Info("Relay probe succeeded", "relay_host", host, "relay_port", port)
	}
	return nil
}
