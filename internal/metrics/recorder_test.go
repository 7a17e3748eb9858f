package metrics

import "testing"

// NoopRecorder must tolerate every call without panicking; there is nothing
// else to assert since it discards everything.
func TestNoopRecorder_NeverPanics(t *testing.T) {
	var r NoopRecorder
	r.IncResolverFailure("dplyr", "no_pkgdown_site")
	r.IncResolverHit("alias_index")
	r.ObserveCacheSize(3)
}
