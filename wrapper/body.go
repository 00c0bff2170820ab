package wrapper

import (
	"fmt"
	"strings"

	"github.com/problame/forward-as-attachment-mta/arguments"
	"github.com/problame/forward-as-attachment-mta/config"
	"github.com/problame/forward-as-attachment-mta/models"
)

// report renders the wrapper's own text part: enough context to tell
// which machine, account and invocation produced the message without
// opening the attachment.
func report(args *arguments.SendmailArgs, src *config.Source, id models.LocalIdentity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A process on host %q invoked the sendmail binary.\n", id.Hostname)
	fmt.Fprintf(&b, "On that host, the sendmail binary is provided by the forward-as-attachment-mta package.\n")
	if src != nil {
		if !src.ModeKnown {
			fmt.Fprintf(&b, "WARNING: could not determine permissions of the config file, they may or may not be too lax\n")
		} else if src.TooLax() {
			fmt.Fprintf(&b, "WARNING: the config file contains SMTP credentials and has too-lax permissions: %s\n", src.Mode.Perm())
		}
	}
	fmt.Fprintf(&b, "The original message is attached inline to this wrapper message.\n")
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "Invocation args: %q\n", args.Raw)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "%s\n", id.IDLine())
	fmt.Fprintf(&b, "username: %s\n", id.Username)
	fmt.Fprintf(&b, "groupname: %s\n", id.Groupname)
	fmt.Fprintf(&b, "effective username: %s\n", id.EffectiveUsername)
	fmt.Fprintf(&b, "effective groupname: %s\n", id.EffectiveGroupname)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "hostname: %s\n", id.Hostname)
	fmt.Fprintf(&b, "platform: %s\n", id.Platform)
	return b.String()
}
