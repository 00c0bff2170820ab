package main

import (
	"os"
)

var Version string

func main() {
	app := MakeApp()
	app.Run(routeArgv(os.Args))
}

// routeArgv decides whether we were invoked as ourselves or as sendmail.
// Daemons exec the sendmail binary with whatever options their sendmail
// dialect has; those must reach the submit action unharmed. Only a first
// argument that names one of our own commands (or asks for help) goes
// through normal command dispatch.
func routeArgv(argv []string) []string {
	if len(argv) >= 2 {
		switch argv[1] {
		case "submit", "check", "dump", "help", "h", "--help", "-h", "--version":
			return argv
		}
	}
	rerouted := make([]string, 0, len(argv)+1)
	rerouted = append(rerouted, argv[0], "submit")
	rerouted = append(rerouted, argv[1:]...)
	return rerouted
}
