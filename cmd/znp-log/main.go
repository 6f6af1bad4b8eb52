// Command znp-log is a tool for viewing and analyzing NVRAM exchange logs.
//
// Log files are created by NVRAM sessions configured with a FileLogger,
// for example with tclk-inspect -events.
//
// Usage:
//
//	znp-log <command> [flags] <file.nvlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	znp-log view radio.nvlog
//
//	# View only writes to the TCLK table
//	znp-log view -operation write -item TCLK_TABLE radio.nvlog
//
//	# Export to CSV
//	znp-log export -format csv radio.nvlog
//
//	# Filter by session and save to new file
//	znp-log filter -session 3f2a9c1e-... -o filtered.nvlog radio.nvlog
//
//	# Show statistics
//	znp-log stats radio.nvlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/znp-protocol/znp-go/cmd/znp-log/commands"
)

const usage = `znp-log - Z-Stack NVRAM Log Analyzer

Usage:
  znp-log <command> [flags] <file.nvlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "znp-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// criteriaFlags registers the event selection flags on fs.
func criteriaFlags(fs *flag.FlagSet, c *commands.Criteria) {
	fs.StringVar(&c.Session, "session", "", "Filter by session ID")
	fs.StringVar(&c.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&c.Category, "category", "", "Filter by category (item, error)")
	fs.StringVar(&c.Operation, "operation", "", "Filter by operation (read, write)")
	fs.StringVar(&c.Item, "item", "", "Filter by extended item (name or id)")
	fs.StringVar(&c.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&c.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
}

func newFlagSet(name, summary, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "znp-log %s - %s\n\nUsage:\n  znp-log %s\n\nFlags:\n", name, summary, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// logPath parses args and returns the log file argument.
func logPath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format", "view [flags] <file.nvlog>")
	var criteria commands.Criteria
	criteriaFlags(fs, &criteria)

	path := logPath(fs, args)
	if err := commands.RunView(path, criteria, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSON or CSV format", "export [flags] <file.nvlog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	path := logPath(fs, args)
	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file", "filter [flags] <file.nvlog>")
	var opts commands.FilterOptions
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	criteriaFlags(fs, &opts.Criteria)

	path := logPath(fs, args)
	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunFilter(path, opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file", "stats <file.nvlog>")

	path := logPath(fs, args)
	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
