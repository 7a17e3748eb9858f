package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rdocs/rd2qmd/internal/aliasindex"
	"github.com/rdocs/rd2qmd/internal/convcache"
	"github.com/rdocs/rd2qmd/internal/lower"
	"github.com/rdocs/rd2qmd/internal/mdwriter"
	"github.com/rdocs/rd2qmd/internal/metrics"
	"github.com/rdocs/rd2qmd/internal/pkgindex"
	"github.com/rdocs/rd2qmd/internal/rdast"
	"github.com/rdocs/rd2qmd/internal/rderrors"
	"github.com/rdocs/rd2qmd/internal/rdparse"
)

// ConvertCmd converts a batch of .Rd files to Markdown/Quarto. The exit
// codes (0/1/2/3) follow the driver contract: any argument problem is 1,
// any document failing to parse is 2 (after every file has been attempted),
// and an I/O failure outside parsing is 3.
type ConvertCmd struct {
	Paths []string `arg:"" type:"path" help:"Rd files or directories to convert"`

	OutDir    string `short:"o" help:"Write output alongside each source file when empty" default:""`
	Recursive bool   `short:"r" help:"Recurse into subdirectories when a path is a directory"`
	Jobs      int    `short:"j" help:"Number of documents lowered concurrently" default:"4"`

	OutputFormat     string `help:"qmd or md" default:"${outputFormat}" enum:"qmd,md"`
	ArgumentsTable   string `help:"grid or pipe" default:"${argumentsTable}" enum:"grid,pipe"`
	Frontmatter      bool   `help:"Emit YAML frontmatter" default:"${frontmatterOn}" negatable:""`
	Pagetitle        bool   `help:"Emit a pagetitle frontmatter field" default:"${pagetitleOn}" negatable:""`
	QuartoCodeBlocks bool   `help:"Use Quarto {r} fences for executable examples" default:"${quartoCodeBlocksOn}" negatable:""`
	ExecDontrun      bool   `help:"Treat \\dontrun examples as executable" default:"${execDontrun}"`
	ExecDonttest     bool   `help:"Treat \\donttest examples as executable" default:"${execDonttest}"`

	ExternalLinksEnabled            bool   `help:"Resolve \\link[pkg]{topic} targets against installed packages" default:"${externalLinksOn}" negatable:""`
	UnresolvedLinkURLTemplate       string `default:"${unresolvedTemplate}"`
	ExternalPackageFallbackTemplate string `default:"${fallbackTemplate}"`
	RLibPaths                       []string `help:"Library paths searched for installed packages' pkgdown sites"`
	CacheDir                        string   `help:"Disk cache for resolved pkgdown indexes" default:"${cacheDir}"`

	ConversionCacheDB string `help:"SQLite database tracking stable uids and output fingerprints across runs; unchanged documents are skipped" default:"${conversionCacheDB}"`
}

type parsedDoc struct {
	path string
	stem string
	doc  *rdast.Document
	errs []*rderrors.ClassifiedError
}

func (c *ConvertCmd) Run(rec metrics.Recorder) int {
	files, err := discoverRdFiles(c.Paths, c.Recursive)
	if err != nil {
		slog.Error("failed to discover input files", "error", err)
		return 1
	}
	if len(files) == 0 {
		slog.Error("no .Rd files found", "paths", c.Paths)
		return 1
	}

	lowerOpts := lower.Options{
		OutputFormat:                    lower.OutputFormat(c.OutputFormat),
		FrontmatterOn:                   c.Frontmatter,
		PagetitleOn:                     c.Pagetitle,
		ExecDontrun:                     c.ExecDontrun,
		ExecDonttest:                    c.ExecDonttest,
		ExternalLinksEnabled:            c.ExternalLinksEnabled,
		UnresolvedLinkURLTemplate:       c.UnresolvedLinkURLTemplate,
		ExternalPackageFallbackTemplate: c.ExternalPackageFallbackTemplate,
	}
	writerOpts := mdwriter.Options{
		OutputFormat:     c.OutputFormat,
		QuartoCodeBlocks: c.QuartoCodeBlocks,
		TableStyle:       mdwriter.TableStyle(c.ArgumentsTable),
	}

	var external lower.ExternalResolver
	if c.ExternalLinksEnabled {
		resolver := pkgindex.New(c.RLibPaths, c.CacheDir, pkgindex.WithMetrics(rec))
		external = resolver
	}

	var cache *convcache.Cache
	if c.ConversionCacheDB != "" {
		var err error
		cache, err = convcache.Open(c.ConversionCacheDB)
		if err != nil {
			slog.Error("failed to open conversion cache", "path", c.ConversionCacheDB, "error", err)
			return 3
		}
		defer cache.Close()
	}

	// Parsing happens up front and sequentially building the Alias Index
	// before any document is lowered, matching the "Alias Index is fully
	// built before any document is lowered" invariant.
	parsed := make([]parsedDoc, len(files))
	parseFailed := false
	for i, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			slog.Error("failed to read file", "path", path, "error", err)
			return 3
		}
		doc, errs := rdparse.Parse(src)
		parsed[i] = parsedDoc{path: path, stem: stemOf(path), doc: doc, errs: errs}
		for _, e := range errs {
			if e.Severity == rderrors.SeverityFatal {
				parseFailed = true
				slog.Error("parse error", "path", path, "error", e)
				// A fatal error halts this document: it is neither
				// indexed nor written.
				parsed[i].doc = nil
			} else {
				slog.Warn("parse warning", "path", path, "error", e)
			}
		}
	}

	aliasDocs := make([]aliasindex.Doc, 0, len(parsed))
	for _, p := range parsed {
		if p.doc != nil {
			aliasDocs = append(aliasDocs, aliasindex.Doc{Stem: p.stem, Document: p.doc})
		}
	}
	aliases, aliasDiags := aliasindex.Build(aliasDocs)
	for _, d := range aliasDiags {
		slog.Warn("alias index diagnostic", "error", d)
	}

	jobs := c.Jobs
	if jobs < 1 {
		jobs = 1
	}

	tasks := make(chan parsedDoc)
	var wg sync.WaitGroup
	var mu sync.Mutex
	writeFailed := false

	worker := func() {
		defer wg.Done()
		lw := lower.New(lowerOpts, aliases, external)
		for p := range tasks {
			if p.doc == nil {
				continue
			}
			result := lw.Lower(p.doc)
			for _, d := range result.Diagnostics {
				slog.Warn("lowering diagnostic", "path", p.path, "error", d)
			}

			if cache != nil && lowerOpts.FrontmatterOn && result.Frontmatter != nil {
				if uid, err := cache.StableUID(p.stem); err != nil {
					slog.Warn("failed to assign stable uid", "path", p.path, "error", err)
				} else {
					result.Frontmatter["uid"] = uid
				}
			}

			text := mdwriter.Write(result.Root, result.Frontmatter, writerOpts)

			if cache != nil {
				changed, err := cache.Changed(p.stem, []byte(text))
				if err != nil {
					slog.Warn("failed to check conversion cache", "path", p.path, "error", err)
				} else if !changed {
					slog.Debug("unchanged, skipping write", "path", p.path)
					continue
				}
			}

			outPath := c.outputPath(p)
			if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
				slog.Error("failed to write output", "path", outPath, "error", err)
				mu.Lock()
				writeFailed = true
				mu.Unlock()
				continue
			}
			slog.Debug("converted", "source", p.path, "output", outPath)
		}
	}

	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go worker()
	}
	for _, p := range parsed {
		tasks <- p
	}
	close(tasks)
	wg.Wait()

	if writeFailed {
		return 3
	}
	if parseFailed {
		return 2
	}
	return 0
}

func (c *ConvertCmd) outputPath(p parsedDoc) string {
	ext := "qmd"
	if c.OutputFormat == "md" {
		ext = "md"
	}
	name := p.stem + "." + ext
	if c.OutDir != "" {
		return filepath.Join(c.OutDir, name)
	}
	return filepath.Join(filepath.Dir(p.path), name)
}
