package logging

import (
	"log/syslog"
	"os"

	"github.com/inconshreveable/log15"

	"github.com/problame/forward-as-attachment-mta/arguments"
)

// NewLogger builds the process logger. Logs go to stderr, never stdout:
// callers of a sendmail binary tend to capture stdout. With --syslog they
// go to the mail facility instead, which fits a tool that only ever runs
// under other daemons.
func NewLogger(args *arguments.Args) log15.Logger {
	lvl, _ := log15.LvlFromString(args.Logging.LogLevel)
	logger := log15.New()

	if args.Logging.Syslog {
		logger.SetHandler(
			log15.LvlFilterHandler(
				lvl,
				log15.Must.SyslogHandler(
					syslog.LOG_INFO|syslog.LOG_MAIL,
					"forward-as-attachment-mta",
					log15.JsonFormat(),
				),
			),
		)
		return logger
	}

	logger.SetHandler(
		log15.LvlFilterHandler(
			lvl,
			log15.StreamHandler(
				os.Stderr,
				log15.LogfmtFormat(),
			),
		),
	)
	return logger
}
