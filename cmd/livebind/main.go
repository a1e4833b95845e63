package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/livefir/livebind/cmd/livebind/commands"
)

// Version information (can be overridden at build time with -ldflags)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "render":
		err = commands.Render(args, os.Stdout, os.Stderr)
	case "check":
		err = commands.Check(args, os.Stdout, os.Stderr)
	case "serve":
		err = commands.Serve(args, os.Stdout, os.Stderr)
	case "play":
		err = commands.Play(args, os.Stdout, os.Stderr)
	case "migrate":
		err = commands.Migrate(args, os.Stdout, os.Stderr)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, commands.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("livebind version %s\n", version)

	if info, ok := debug.ReadBuildInfo(); ok {
		var vcsRevision, vcsTime string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				vcsRevision = setting.Value
			case "vcs.time":
				vcsTime = setting.Value
			}
		}

		if commit != "unknown" {
			fmt.Printf("commit: %s\n", commit)
		} else if vcsRevision != "" {
			if len(vcsRevision) > 12 {
				vcsRevision = vcsRevision[:12]
			}
			fmt.Printf("commit: %s\n", vcsRevision)
		}

		if date != "unknown" {
			fmt.Printf("built: %s\n", date)
		} else if vcsTime != "" {
			if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
				fmt.Printf("commit date: %s\n", t.Format("2006-01-02 15:04:05 MST"))
			}
		}

		fmt.Printf("go: %s\n", info.GoVersion)
	}
}

func printUsage() {
	fmt.Println("livebind binds data to HTML templates")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  livebind render -template <file> [-data <file> | -sqlite <db> -query <sql>]   Render and print HTML")
	fmt.Println("  livebind check -template <file>                                              Compile templates and report errors")
	fmt.Println("  livebind serve -template <file> [-addr :8080]                                Live preview over a websocket")
	fmt.Println("  livebind play -template <file> -from <file> -data <file> [-duration 1s]      Play a transition in the terminal")
	fmt.Println("  livebind migrate -sqlite <db> [-migrations <dir>] up|down|version|create      Manage data source migrations")
	fmt.Println("  livebind version                                                             Show version information")
	fmt.Println()
	fmt.Println("Templates are the elements matching [data-template] (or -select), falling back to the")
	fmt.Println("children of <body>. Run a command with -h to list its flags.")
}
