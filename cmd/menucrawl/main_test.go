package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/menucrawl/internal/config"
	"github.com/v0xg/menucrawl/internal/menu"
	"github.com/v0xg/menucrawl/internal/report"
)

const testConfigYAML = `
timeouts:
  day: 300ms
  period: 300ms
  station: 300ms
settle:
  day: 1ms
  period: 1ms
  station: 1ms
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestCrawlSaveAndShow(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "menucrawl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfigYAML), 0o644))
	outPath := filepath.Join(dir, "menu.json")
	dbDir := filepath.Join(dir, "db")
	fixturePath := filepath.Join("..", "..", "internal", "crawler", "testdata", "two_days.html")

	execute(t, "crawl", "https://dining.example/menu",
		"--config", cfgPath,
		"--fixture", fixturePath,
		"--format", "json",
		"-o", outPath,
		"--save",
		"--db-dir", dbDir,
	)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc report.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "https://dining.example/menu", doc.Site)
	assert.Len(t, doc.Days, 2)
	assert.Equal(t, 8, doc.FoodCount())
	require.NotNil(t, doc.Report)
	assert.True(t, doc.Report.Complete())

	out := execute(t, "show", "--config", cfgPath, "--db-dir", dbDir,
		"--format", "json", "--day", "19 Wed", "--station", "grll")
	var shown report.Document
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.Len(t, shown.Days, 1)
	assert.Len(t, shown.Lookup("19 Wed", "Lunch", "Grill"), 2)
	assert.Nil(t, shown.Report)

	out = execute(t, "history", "--config", cfgPath, "--db-dir", dbDir)
	assert.Contains(t, out, "https://dining.example/menu")
	assert.Contains(t, out, "complete")
}

func TestShow_EmptyArchive(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", "--db-dir", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl with --save first")
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "menucrawl dev\n", execute(t, "version"))
}

func TestWriteReport(t *testing.T) {
	snap := menu.NewBuilder("https://dining.example/menu").Build(time.Date(2025, 11, 18, 9, 30, 0, 0, time.UTC))
	cfg := config.NewConfig()
	cfg.Output.Format = "json"
	cfg.Output.Path = filepath.Join(t.TempDir(), "menu.json")
	var progress bytes.Buffer

	require.NoError(t, writeReport(cfg, snap, nil, &progress))
	assert.Contains(t, progress.String(), "done")
	data, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"site": "https://dining.example/menu"`)

	cfg.Output.Format = "csv"
	progress.Reset()
	assert.Error(t, writeReport(cfg, snap, nil, &progress))
	assert.Contains(t, progress.String(), "failed")

	cfg.Output.Format = "json"
	cfg.Output.Path = filepath.Join(t.TempDir(), "missing", "menu.json")
	err = writeReport(cfg, snap, nil, &progress)
	assert.ErrorContains(t, err, "create output")
}
