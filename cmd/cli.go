package cmd

import (
	"flag"
	"fmt"
	"os"
)

// Options holds the CLI options parsed from arguments.
type Options struct {
	Addr    string // Listen address override
	EnvFile string // Path to an optional .env file
}

// ParseArgs parses command line arguments and returns Options.
func ParseArgs() (*Options, error) {
	opts := &Options{}

	flag.StringVar(&opts.Addr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	flag.StringVar(&opts.EnvFile, "env", "", "Path to .env file")

	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flag.Arg(0))
	}

	return opts, nil
}

// printUsage prints the usage information.
func printUsage() {
	fmt.Println("\nUsage:")
	fmt.Println("  scrape-bot [-addr <listen address>] [-env <path>]")
	fmt.Println("\nFlags:")
	fmt.Println("  -addr    Listen address (default from LISTEN_ADDR, :8080)")
	fmt.Println("  -env     Path to .env file with credentials")
	fmt.Println("\nRequired environment:")
	fmt.Println("  YOUTUBE_API_KEYS    Comma-separated API key list")
	fmt.Println()
}

// PrintUsageAndExit prints usage and exits with code 1.
func PrintUsageAndExit() {
	printUsage()
	os.Exit(1)
}
