// Command xlrecover is a CLI front-end for the xlrecover library: it
// parses meta-sidecars and topology-docs and drives object decodes
// against a set of local disk roots.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

var version = "dev"

var verbose bool

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[1:]
	for len(args) > 0 && len(args[0]) > 0 && args[0][0] == '-' {
		switch args[0] {
		case "--verbose", "-v":
			verbose = true
			args = args[1:]
		case "--version":
			fmt.Printf("xlrecover %s\n", version)
			os.Exit(0)
		case "--help", "-h":
			printUsage()
			os.Exit(0)
		default:
			fatal("unknown flag: " + args[0])
		}
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "meta":
		runMeta(cmdArgs)
	case "topology":
		runTopology(cmdArgs)
	case "decode":
		runDecode(cmdArgs)
	case "version":
		fmt.Printf("xlrecover %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: xlrecover [flags] <command> [args]

Flags:
  --verbose, -v        Enable debug logging
  --version            Show version
  --help, -h           Show this help

Commands:
  meta <sidecar-file> <bucket> <key>
      Parse a meta-sidecar and print its object-meta fields.

  topology <format.json> [disk-uuid]
      Parse a topology-doc and print its pool/set/disk layout. If a disk
      UUID is given, also prints that disk's (pool,set,disk) position.

  decode --disks=<root1,root2,...> <sidecar-file> <bucket> <key> <out-file>
      Decode an object's bytes to out-file using the given disk roots.
      --disks may also come from --config=<yaml-file> or the
      XLRECOVER_DISKS environment variable.

  version               Show version
  help                  Show this help`)
}

func fatal(msg string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
