package arguments

import (
	"strings"

	"github.com/urfave/cli"
)

// Args carries everything an action needs that arrived through flags or
// the environment. The sendmail argument vector is interpreted separately,
// see SendmailArgs.
type Args struct {
	Logging    LoggingArgs
	ConfigFile string
}

type argsI interface {
	Populate(c *cli.Context)
	Verify() error
}

func GetArgs(c *cli.Context) (*Args, error) {
	args := new(Args)

	toInit := []argsI{
		&args.Logging,
	}

	for _, i := range toInit {
		i.Populate(c)
		err := i.Verify()
		if err != nil {
			return nil, err
		}
	}

	args.ConfigFile = strings.TrimSpace(c.GlobalString("config"))

	return args, nil
}
