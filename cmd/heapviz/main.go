// cmd/heapviz turns an attribution.Snapshot collected by a profiled test
// binary (embedding internal/alloctrace directly) into a viewable page. It
// is deliberately not a process launcher: per spec.md §6, heapviz ships as
// a library embedded in the profiled binary, the same division of labor
// the teacher's cmd/orizon-profile keeps between "produce a profile" and
// "go tool pprof renders it."
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/orizon-lang/heapviz/internal/attribution"
	"github.com/orizon-lang/heapviz/internal/cli"
	"github.com/orizon-lang/heapviz/internal/render"
)

func main() {
	config, err := cli.LoadConfig(preScanConfigFlag(os.Args[1:]))
	if err != nil {
		cli.ExitWithError("failed to load -config: %v", err)
	}

	var (
		showVersion  = flag.Bool("version", false, "show version information")
		showHelp     = flag.Bool("help", false, "show help information")
		jsonOutput   = flag.Bool("json", false, "output version in JSON format")
		snapshotPath = flag.String("render", "", "path to a snapshot written by attribution.Snapshot.Save")
		outputFile   = flag.String("out", "heapviz.html", "rendered HTML output path")
		serveAddr    = flag.String("serve", "", "HTTP/3 address to serve the flamegraph on instead of writing -out (e.g. :8443)")
		withSource   = flag.Bool("source", false, "attach a file_content source-line block to each leaf (reads files from disk at render time)")
		contextLines = flag.Int("context", render.DefaultSourceContextLines, "number of lines of source context around each leaf when -source is set")
		verbose      = flag.Bool("verbose", config.Verbose, "verbose output")
		debug        = flag.Bool("debug", config.Debug, "debug output (implies -verbose)")
	)

	flag.String("config", "", "path to a JSON config file providing defaults for -verbose/-debug")

	flag.Usage = func() {
		cli.PrintCommandUsage("heapviz", heapvizCommandInfo)
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		cli.ExitWithCode(0, "")
	}

	if *showVersion {
		cli.PrintVersion("heapviz", *jsonOutput)
		cli.ExitWithCode(0, "")
	}

	logger := cli.NewLogger(*verbose || *debug, *debug)

	run := &Runner{
		SnapshotPath: *snapshotPath,
		OutputFile:   *outputFile,
		ServeAddr:    *serveAddr,
		WithSource:   *withSource,
		ContextLines: *contextLines,
		Logger:       logger,
	}

	var runErr error
	if err := run.Run(); err != nil {
		runErr = fmt.Errorf("heapviz failed: %w", err)
	}

	cli.HandleError(runErr, logger)
}

// preScanConfigFlag finds -config's value (if any) among args without
// involving the flag package: flag.Parse hasn't run yet when main needs
// the config file to compute the -verbose/-debug flag defaults below.
func preScanConfigFlag(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "-config" || arg == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "-config=") || strings.HasPrefix(arg, "--config="):
			return arg[strings.Index(arg, "=")+1:]
		}
	}

	return ""
}

// heapvizCommandInfo documents heapviz's single command the same way the
// teacher's cmd/orizon describes each of its subcommands, so -help renders
// through cli.PrintCommandUsage instead of a hand-rolled usage string.
var heapvizCommandInfo = cli.CommandInfo{
	Name:        "heapviz",
	Usage:       "heapviz -render <snapshot.json> [OPTIONS]",
	Description: "render an attribution.Snapshot into a flamegraph",
	Examples: []string{
		"heapviz -render profile.json -out profile.html   # render to a file",
		"heapviz -render profile.json -serve :8443         # serve the rendered page over HTTP/3",
	},
	Flags: []cli.FlagInfo{
		{Name: "config", Usage: "path to a JSON config file providing defaults for -verbose/-debug"},
		{Name: "render", Usage: "path to a snapshot written by attribution.Snapshot.Save", Required: true},
		{Name: "out", Usage: "rendered HTML output path", Default: "heapviz.html"},
		{Name: "serve", Usage: "HTTP/3 address to serve the flamegraph on instead of writing -out"},
		{Name: "source", Usage: "attach a file_content source-line block to each leaf"},
		{Name: "context", Usage: "lines of source context around each leaf when -source is set"},
		{Name: "verbose", Usage: "verbose output"},
		{Name: "debug", Usage: "debug output (implies -verbose)"},
	},
}

// Runner holds one invocation's resolved flags, mirroring the teacher
// CLI's flags-struct-with-Run-method shape.
type Runner struct {
	SnapshotPath string
	OutputFile   string
	ServeAddr    string
	WithSource   bool
	ContextLines int
	Logger       *cli.Logger
}

func (r *Runner) Run() error {
	if r.SnapshotPath == "" {
		return fmt.Errorf("-render <snapshot.json> is required")
	}

	snap, err := attribution.LoadSnapshot(r.SnapshotPath)
	if err != nil {
		return err
	}

	tree := snap.Tree()

	r.Logger.Info("loaded snapshot %s (format %s, overflow %d)", r.SnapshotPath, snap.FormatVersion, tree.OverflowCount)

	var src *render.SourceCache
	if r.WithSource {
		src = render.NewSourceCache()
		defer src.Close()

		r.Logger.Debug("source context enabled, %d lines around each leaf", r.ContextLines)
	}

	if r.ServeAddr != "" {
		fmt.Printf("serving flamegraph on %s\n", r.ServeAddr)

		srv := render.NewServerWithSource(r.ServeAddr, nil, func() *attribution.Tree { return tree }, src, r.ContextLines)

		return srv.Serve()
	}

	if src != nil {
		err = render.WriteFileWithSource(tree, r.OutputFile, src, r.ContextLines)
	} else {
		err = render.WriteFile(tree, r.OutputFile)
	}

	if err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", r.OutputFile)

	return nil
}
