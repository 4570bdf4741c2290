// Package cli wires flags, config, and the orchestration engine into the
// scenesync command surface.
package cli

import (
	"flag"
	"fmt"
)

// Process exit codes. 130 mirrors shell convention for SIGINT so wrapper
// scripts can tell a graceful interrupt from a failure.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// Run dispatches a subcommand and returns the process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printRootUsage()
		return exitOK
	}

	switch args[0] {
	case "sync":
		return runSync(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return exitOK
	default:
		printRootUsage()
		fmt.Printf("unknown command %q\n", args[0])
		return exitUsage
	}
}

func parseArgs(fs *flag.FlagSet, args []string) (int, bool) {
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK, false
		}
		return exitUsage, false
	}
	return exitOK, true
}

func printRootUsage() {
	fmt.Println("scenesync: reconcile a scene catalog against local storage")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  scenesync validate -download-dir ./data")
	fmt.Println("  scenesync sync -download-dir ./data")
	fmt.Println("  scenesync sync -download-dir ./data -execute")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  sync      classify, fetch, repair, and subsample every scene")
	fmt.Println("  validate  classification-only pass; reports scene completeness")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - sync is a dry run until -execute is given: removals and")
	fmt.Println("    subsampling are logged as [dry] actions, downloads still run")
	fmt.Println("  - first ctrl+c finishes in-flight scenes and stops; a second")
	fmt.Println("    one terminates immediately")
}
