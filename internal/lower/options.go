package lower

// OutputFormat selects the target Markdown dialect.
type OutputFormat string

const (
	FormatQMD OutputFormat = "qmd"
	FormatMD  OutputFormat = "md"
)

// Options parameterises the lowering pass. It mirrors the WriterOptions /
// FormatOptions split only loosely: fields that change mdast *shape* live
// here; fields that only change how a shape is rendered to text (grid vs
// pipe tables, backtick fence length, ...) live in mdwriter.Options.
type Options struct {
	OutputFormat OutputFormat

	FrontmatterOn bool
	PagetitleOn   bool

	// ExecDontrun/ExecDonttest decide whether code inside \dontrun / \donttest
	// is marked executable in the mdast (mdast.Node.Meta == "exec"); the
	// writer turns that marker into a `{r}` info string, or plain `r` when
	// OutputFormat is FormatMD. \dontshow and \testonly are dropped here
	// already and never reach the writer; \dontdiff is always non-executable.
	ExecDontrun  bool
	ExecDonttest bool

	ExternalLinksEnabled            bool
	UnresolvedLinkURLTemplate       string
	ExternalPackageFallbackTemplate string
}

// DefaultOptions matches the documented CLI defaults.
func DefaultOptions() Options {
	return Options{
		OutputFormat:                    FormatQMD,
		FrontmatterOn:                   true,
		PagetitleOn:                     true,
		ExecDontrun:                     false,
		ExecDonttest:                    true,
		ExternalLinksEnabled:            true,
		UnresolvedLinkURLTemplate:       "https://rdrr.io/r/base/{topic}.html",
		ExternalPackageFallbackTemplate: "https://rdrr.io/pkg/{package}/man/{topic}.html",
	}
}

// fileExt returns the link extension ("qmd" or "md") used when rewriting
// internal \link targets to sibling files.
func (o Options) fileExt() string {
	if o.OutputFormat == FormatMD {
		return "md"
	}
	return "qmd"
}
