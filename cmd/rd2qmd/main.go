// Command rd2qmd converts R Documentation (.Rd) files to Quarto (.qmd) or
// standard Markdown (.md). It is a thin front-end: flag parsing, file
// discovery, exit codes and a worker pool live here; every domain decision
// is made by internal/lower and internal/mdwriter.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/rdocs/rd2qmd/internal/rdconfig"
)

// CLI is kong's command tree. Flag defaults are seeded from rdconfig.Load
// (RD2QMD_* environment variables, then .env/.env.local) via the ${...}
// interpolation kong.Vars provides; flags given on the command line always
// win over both. RD2QMD_R_LIBS and RD2QMD_RECURSIVE are read by
// rdconfig.Load but not passed to kong, so --r-lib-paths and --recursive
// take no default from the environment.
var CLI struct {
	Verbose     bool   `short:"v" help:"Enable debug logging"`
	MetricsAddr string `help:"Serve Prometheus metrics on this address (e.g. :9090); empty disables metrics" default:""`

	Convert    ConvertCmd    `cmd:"" help:"Convert .Rd files to Markdown/Quarto"`
	SweepCache SweepCacheCmd `cmd:"" help:"Remove expired negative entries from the pkgindex disk cache"`
}

func main() {
	env := rdconfig.Load()

	parser, err := kong.New(&CLI, kong.Vars{
		"outputFormat":       env.OutputFormat,
		"argumentsTable":     env.ArgumentsTable,
		"unresolvedTemplate": env.UnresolvedLinkURLTemplate,
		"fallbackTemplate":   env.ExternalPackageFallbackTemplate,
		"cacheDir":           env.CacheDir,
		"conversionCacheDB":  env.ConversionCacheDB,
		"externalLinksOn":    fmt.Sprint(env.ExternalLinksEnabled),
		"frontmatterOn":      fmt.Sprint(env.FrontmatterOn),
		"pagetitleOn":        fmt.Sprint(env.PagetitleOn),
		"quartoCodeBlocksOn": fmt.Sprint(env.QuartoCodeBlocks),
		"execDontrun":        fmt.Sprint(env.ExecDontrun),
		"execDonttest":       fmt.Sprint(env.ExecDonttest),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	level := slog.LevelInfo
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	rec, stopMetrics := setupMetrics(CLI.MetricsAddr)

	exitCode := 0
	switch ctx.Command() {
	case "convert <paths>":
		exitCode = CLI.Convert.Run(rec)
	case "sweep-cache <cache-dir>":
		exitCode = CLI.SweepCache.Run()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", ctx.Command())
		exitCode = 1
	}

	if stopMetrics != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := stopMetrics(stopCtx); err != nil {
			slog.Warn("metrics server shutdown error", "error", err)
		}
		cancel()
	}

	os.Exit(exitCode)
}
