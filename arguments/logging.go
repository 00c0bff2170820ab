package arguments

import (
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/storozhukBM/verifier"
	"github.com/urfave/cli"
)

type LoggingArgs struct {
	LogLevel string
	Syslog   bool
}

func (args *LoggingArgs) Populate(c *cli.Context) {
	args.LogLevel = strings.ToLower(strings.TrimSpace(c.GlobalString("loglevel")))
	args.Syslog = c.GlobalBool("syslog")
}

func (args *LoggingArgs) Verify() error {
	v := verifier.New()
	v.That(len(args.LogLevel) > 0, "loglevel is empty")
	if len(args.LogLevel) > 0 {
		_, err := log15.LvlFromString(args.LogLevel)
		v.That(err == nil, "unknown loglevel %q", args.LogLevel)
	}
	return v.GetError()
}
