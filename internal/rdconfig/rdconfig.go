// Package rdconfig loads the field set cmd/rd2qmd's CLI flags are layered
// on top of: .env defaults, then RD2QMD_*-prefixed environment variables.
package rdconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config mirrors the CLI-consumed fields: output format, per-run toggles,
// link templates and the external resolver's filesystem inputs.
type Config struct {
	OutputFormat string // "qmd" or "md"
	Recursive    bool

	FrontmatterOn    bool
	PagetitleOn      bool
	QuartoCodeBlocks bool
	ArgumentsTable   string // "grid" or "pipe"

	ExecDontrun  bool
	ExecDonttest bool

	UnresolvedLinkURLTemplate       string
	ExternalLinksEnabled            bool
	ExternalPackageFallbackTemplate string

	RLibPaths []string
	CacheDir  string

	ConversionCacheDB string
}

// Default returns the documented CLI defaults for qmd output.
func Default() Config {
	return Config{
		OutputFormat:                    "qmd",
		FrontmatterOn:                   true,
		PagetitleOn:                     true,
		QuartoCodeBlocks:                true,
		ArgumentsTable:                  "grid",
		ExecDontrun:                     false,
		ExecDonttest:                    true,
		UnresolvedLinkURLTemplate:       "https://rdrr.io/r/base/{topic}.html",
		ExternalLinksEnabled:            true,
		ExternalPackageFallbackTemplate: "https://rdrr.io/pkg/{package}/man/{topic}.html",
		CacheDir:                        ".rd2qmd-cache",
	}
}

// Load loads .env / .env.local (silently skipped if neither exists) and
// applies any RD2QMD_*-prefixed environment variable on top of Default. The
// caller's own flag parsing (cmd/rd2qmd uses kong) takes precedence over
// whatever Load returns, mirroring env-then-flags layering.
func Load() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := Default()

	if v, ok := os.LookupEnv("RD2QMD_OUTPUT_FORMAT"); ok {
		cfg.OutputFormat = v
	}
	if v, ok := lookupBool("RD2QMD_RECURSIVE"); ok {
		cfg.Recursive = v
	}
	if v, ok := lookupBool("RD2QMD_FRONTMATTER"); ok {
		cfg.FrontmatterOn = v
	}
	if v, ok := lookupBool("RD2QMD_PAGETITLE"); ok {
		cfg.PagetitleOn = v
	}
	if v, ok := lookupBool("RD2QMD_QUARTO_CODE_BLOCKS"); ok {
		cfg.QuartoCodeBlocks = v
	}
	if v, ok := os.LookupEnv("RD2QMD_ARGUMENTS_TABLE"); ok {
		cfg.ArgumentsTable = v
	}
	if v, ok := lookupBool("RD2QMD_EXEC_DONTRUN"); ok {
		cfg.ExecDontrun = v
	}
	if v, ok := lookupBool("RD2QMD_EXEC_DONTTEST"); ok {
		cfg.ExecDonttest = v
	}
	if v, ok := os.LookupEnv("RD2QMD_UNRESOLVED_LINK_URL_TEMPLATE"); ok {
		cfg.UnresolvedLinkURLTemplate = v
	}
	if v, ok := lookupBool("RD2QMD_EXTERNAL_LINKS_ENABLED"); ok {
		cfg.ExternalLinksEnabled = v
	}
	if v, ok := os.LookupEnv("RD2QMD_EXTERNAL_PACKAGE_FALLBACK_TEMPLATE"); ok {
		cfg.ExternalPackageFallbackTemplate = v
	}
	if v, ok := os.LookupEnv("RD2QMD_R_LIBS"); ok {
		cfg.RLibPaths = splitPathList(v)
	}
	if v, ok := os.LookupEnv("RD2QMD_CACHE_DIR"); ok {
		cfg.CacheDir = v
	}
	if v, ok := os.LookupEnv("RD2QMD_CONVERSION_CACHE_DB"); ok {
		cfg.ConversionCacheDB = v
	}

	return cfg
}

func lookupBool(key string) (bool, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func splitPathList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, string(os.PathListSeparator)) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects combinations that would make the rest of the pipeline
// misbehave rather than fail loudly.
func (c Config) Validate() error {
	switch c.OutputFormat {
	case "qmd", "md":
	default:
		return fmt.Errorf("rdconfig: invalid output_format %q, want qmd or md", c.OutputFormat)
	}
	switch c.ArgumentsTable {
	case "grid", "pipe":
	default:
		return fmt.Errorf("rdconfig: invalid arguments_table %q, want grid or pipe", c.ArgumentsTable)
	}
	return nil
}
