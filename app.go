package main

import (
	"github.com/urfave/cli"

	"github.com/problame/forward-as-attachment-mta/config"
)

func MakeApp() *cli.App {
	app := cli.NewApp()
	app.Name = "forward-as-attachment-mta"
	app.Usage = "sendmail shim that forwards locally submitted mail as an attachment to one operator mailbox"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config,c",
			Usage:  "path of the TOML configuration file",
			Value:  config.DefaultPath,
			EnvVar: "FORWARD_AS_ATTACHMENT_MTA_CONFIG_FILE",
		},
		cli.BoolFlag{
			Name:   "syslog",
			Usage:  "write logs to syslog instead of stderr",
			EnvVar: "FORWARD_AS_ATTACHMENT_MTA_SYSLOG",
		},
		cli.StringFlag{
			Name:   "loglevel",
			Value:  "info",
			Usage:  "logging level",
			EnvVar: "FORWARD_AS_ATTACHMENT_MTA_LOGLEVEL",
		},
	}
	app.Version = Version
	app.Commands = []cli.Command{
		{
			Name:            "submit",
			Usage:           "read a message from stdin and relay it to the operator mailbox (sendmail mode)",
			Action:          Submit,
			SkipFlagParsing: true,
		},
		{
			Name:   "check",
			Usage:  "validate the configuration and report the local identity",
			Action: Check,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "probe",
					Usage: "also connect to the relay, authenticate and quit",
				},
			},
		},
		{
			Name:            "dump",
			Usage:           "build the wrapper message from stdin and write it to stdout instead of relaying",
			Action:          DumpWrapper,
			SkipFlagParsing: true,
		},
	}
	return app
}
