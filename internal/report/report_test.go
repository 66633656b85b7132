package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/config"
	"github.com/VTVIMAL/WebP-Converter/internal/reconcile"
)

func sampleReport() *reconcile.Report {
	return &reconcile.Report{
		InputRoot:          "/in",
		OutputRoot:         "/out",
		Target:             "webp",
		TargetSource:       config.SourceDetected,
		Missing:            []catalog.RelPath{"sub/b.webp", "a.webp"},
		Unexpected:         []catalog.RelPath{"stray.webp"},
		MissingDirectories: []catalog.RelPath{"empty_dir"},
		MissingOtherFiles:  []catalog.RelPath{"notes.txt"},
		Matched:            map[catalog.RelPath]catalog.RelPath{"c.png": "c.webp"},
		Entries: []reconcile.Entry{
			{Source: "a.png", Output: "a.webp", Status: reconcile.StatusMissing},
			{Source: "c.png", Output: "c.webp", Status: reconcile.StatusConverted},
			{Source: "sub/b.jpg", Output: "sub/b.webp", Status: reconcile.StatusMissing},
		},
		Input: reconcile.SideStats{Images: 3, Convertible: 3},
	}
}

func TestFormatMissingList(t *testing.T) {
	got := string(FormatMissingList(sampleReport()))
	want := strings.Join([]string{
		"Missing files for WEBP conversion",
		strings.Repeat("=", 50),
		"",
		"Missing outputs (2)",
		"---------------",
		"a.webp",
		"sub/b.webp",
		"",
		"Missing directories (1)",
		"-------------------",
		"DIR: empty_dir",
		"",
		"Missing other files (1)",
		"-------------------",
		"notes.txt",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestWriteMissingList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "missing_files.txt")

	wrote, err := WriteMissingList(path, sampleReport())
	require.NoError(t, err)
	assert.True(t, wrote)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Missing files for WEBP conversion\n"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteMissingList_NothingMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing_files.txt")
	r := &reconcile.Report{Target: "webp", Unexpected: []catalog.RelPath{"stray.webp"}}

	wrote, err := WriteMissingList(path, r)
	require.NoError(t, err)
	assert.False(t, wrote)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	finished := started.Add(2 * time.Second)

	require.NoError(t, WriteJSON(path, sampleReport(), started, finished))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got JSONReport
	require.NoError(t, json.Unmarshal(data, &got))

	_, err = uuid.Parse(got.RunID)
	assert.NoError(t, err)
	assert.Equal(t, time.UTC, got.StartedAt.Location())
	assert.True(t, got.StartedAt.Equal(started))
	assert.Equal(t, "detected", got.TargetSource)
	assert.Equal(t, []string{"a.webp", "sub/b.webp"}, got.Missing)
	assert.Equal(t, 1, got.Summary.Converted)
	assert.Equal(t, 2, got.Summary.Missing)
	assert.Equal(t, "poor", got.Summary.Verdict)
	assert.False(t, got.Summary.Complete)
	assert.Len(t, got.Entries, 3)
}

func TestBuildJSON_EmptyListsEncodeAsArrays(t *testing.T) {
	r := &reconcile.Report{Target: "png", Matched: map[catalog.RelPath]catalog.RelPath{}}
	data, err := json.Marshal(BuildJSON(r, time.Now(), time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"missing":[]`)
	assert.Contains(t, string(data), `"entries":[]`)
	assert.NotContains(t, string(data), `"collisions"`)
}
