package lower

// AliasResolver looks up topics registered by the Alias Index built across
// the current batch of Rd documents. It is implemented by internal/aliasindex.
type AliasResolver interface {
	Resolve(topic string) (stem string, ok bool)
}

// ExternalResolver looks up topics exported by other installed R packages,
// via their pkgdown.yml. It is implemented by internal/pkgindex.
type ExternalResolver interface {
	// Resolve returns the absolute URL for pkg's topic, or ok == false if
	// the package or topic could not be resolved.
	Resolve(pkg, topic string) (url string, ok bool)
}

// noAliases and noExternal let a Lowerer run without either service wired
// up yet (e.g. in isolated unit tests), falling through straight to the
// unresolved-link and fallback templates.
type noAliases struct{}

func (noAliases) Resolve(string) (string, bool) { return "", false }

type noExternal struct{}

func (noExternal) Resolve(string, string) (string, bool) { return "", false }
