package logfields

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHelpers_KeyNamesAndValues_Stable(t *testing.T) {
	require.Equal(t, KeyTopic, Topic("x").Key)
	require.Equal(t, "x", Topic("x").Value.String())
	require.Equal(t, KeyPackage, Package("base").Key)
	require.Equal(t, KeyWorkerID, WorkerID(3).Key)
	require.Equal(t, int64(3), WorkerID(3).Value.Int64())
	require.Equal(t, KeyDiagCount, DiagCount(2).Key)
	require.Equal(t, KeySection, Section("examples").Key)
	require.Equal(t, KeyStage, Stage("lower").Key)
	require.Equal(t, KeySourceFile, SourceFile("man/foo.Rd").Key)
	require.Equal(t, KeyOutputPath, OutputPath("foo.qmd").Key)
	require.Equal(t, KeyCacheKey, CacheKey("base-4.3.0").Key)
	require.Equal(t, KeyLinkTarget, LinkTarget("print").Key)
	require.Equal(t, KeyURL, URL("https://example.org").Key)
	require.Equal(t, "https://example.org", URL("https://example.org").Value.String())
}

func TestDurationMS_FloatValuePreserved(t *testing.T) {
	attr := DurationMS(12.5)
	require.Equal(t, KeyDurationMS, attr.Key)
	require.InDelta(t, 12.5, attr.Value.Float64(), 0.0001)
}

func TestError_NilYieldsEmptyString(t *testing.T) {
	attr := Error(nil)
	require.Equal(t, KeyError, attr.Key)
	require.Equal(t, "", attr.Value.String())
}

func TestError_NonNilCarriesMessage(t *testing.T) {
	attr := Error(errors.New("boom"))
	require.Equal(t, "boom", attr.Value.String())
}
