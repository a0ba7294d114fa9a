// cmd/favgrab-fetch/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"favgrab/internal/config"
	"favgrab/internal/exporter"
	"favgrab/internal/favicon"
)

type options struct {
	configFile string
	size       int
	all        bool
	list       bool
	outDir     string
	verbose    bool
	domain     string
}

var errUsage = errors.New("usage: favgrab-fetch [-config file] [-size N | -all] [-out dir] [-list] <domain>")

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("favgrab-fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configFile, "config", "config.yaml", "Configuration file path")
	fs.IntVar(&opts.size, "size", 32, "Icon size to export")
	fs.BoolVar(&opts.all, "all", false, "Export every supported size")
	fs.BoolVar(&opts.list, "list", false, "Print the favicon links instead of exporting")
	fs.StringVar(&opts.outDir, "out", "", "Output directory (defaults to export.output_dir)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		return opts, errUsage
	}
	opts.domain = fs.Arg(0)

	if !opts.all && !opts.list && !favicon.IsSupportedSize(opts.size) {
		return opts, fmt.Errorf("unsupported size %d, choose one of %v", opts.size, favicon.Sizes)
	}
	return opts, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		logrus.WithError(err).WithField("domain", opts.domain).Error(favicon.Message(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, stdout io.Writer) error {
	builder, err := favicon.NewBuilder(cfg.Favicon.Endpoint)
	if err != nil {
		return err
	}

	links, err := builder.Derive(opts.domain)
	if err != nil {
		return err
	}

	if opts.list {
		return printLinks(stdout, links)
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.Export.OutputDir
	}

	sizes := []int{opts.size}
	if opts.all {
		sizes = favicon.Sizes
	}

	loader := exporter.NewLoader(&http.Client{Timeout: cfg.Export.Timeout}, cfg.Export.UserAgent, cfg.Export.MaxBytes)
	results, err := exportAll(ctx, exporter.New(loader, cfg.Export.Timeout), links, sizes, exporter.DirSink{Dir: outDir})
	for _, res := range results {
		if res.FileName == "" {
			continue
		}
		fmt.Fprintf(stdout, "%s\t%dx%d\n", res.Location, res.Width, res.Height)
	}
	return err
}

// exportAll exports every size concurrently. The first failure cancels the
// rest; results keep the order of sizes.
func exportAll(ctx context.Context, exp *exporter.Exporter, links favicon.LinkSet, sizes []int, sink exporter.Sink) ([]exporter.Result, error) {
	results := make([]exporter.Result, len(sizes))
	g, ctx := errgroup.WithContext(ctx)

	for i, size := range sizes {
		i, size := i, size
		link, ok := links.Get(size)
		if !ok {
			return nil, fmt.Errorf("%w: no link for size %d", favicon.ErrExportFailure, size)
		}
		g.Go(func() error {
			res, err := exp.Export(ctx, size, link, sink)
			if err != nil {
				return fmt.Errorf("size %d: %w", size, err)
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

func printLinks(w io.Writer, links favicon.LinkSet) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "target\t%s\n", links.Target)
	for _, size := range links.SortedSizes() {
		link, _ := links.Get(size)
		fmt.Fprintf(tw, "%d\t%s\n", size, link)
	}
	return tw.Flush()
}
