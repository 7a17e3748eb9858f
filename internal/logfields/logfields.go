// Package logfields centralizes the slog.Attr keys used across the
// conversion pipeline so callers never drift on naming between the lexer,
// parser, lowerer, writer and resolver.
package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTopic      = "topic"
	KeyPackage    = "package"
	KeySection    = "section"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeySourceFile = "source_file"
	KeyOutputPath = "output_path"
	KeyWorkerID   = "worker_id"
	KeyCacheKey   = "cache_key"
	KeyLinkTarget = "link_target"
	KeyURL        = "url"
	KeyError      = "error"
	KeyDiagCount  = "diagnostic_count"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers
// can compose a log line from only the fields that apply.
func Topic(name string) slog.Attr       { return slog.String(KeyTopic, name) }
func Package(name string) slog.Attr     { return slog.String(KeyPackage, name) }
func Section(name string) slog.Attr     { return slog.String(KeySection, name) }
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func SourceFile(path string) slog.Attr  { return slog.String(KeySourceFile, path) }
func OutputPath(path string) slog.Attr  { return slog.String(KeyOutputPath, path) }
func WorkerID(id int) slog.Attr         { return slog.Int(KeyWorkerID, id) }
func CacheKey(key string) slog.Attr     { return slog.String(KeyCacheKey, key) }
func LinkTarget(target string) slog.Attr { return slog.String(KeyLinkTarget, target) }
func URL(url string) slog.Attr          { return slog.String(KeyURL, url) }
func DiagCount(n int) slog.Attr         { return slog.Int(KeyDiagCount, n) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
