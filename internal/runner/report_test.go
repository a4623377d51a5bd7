package runner

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infracollect/epubshrink/internal/engine"
)

func TestBookReports(t *testing.T) {
	report := &engine.Report{InputSize: 10, OutputSize: 5}
	got := BookReports([]BookResult{
		{Input: "a.epub", Output: "out/a.epub", Report: report},
		{Input: "b.epub", Output: "out/b.epub", Err: errors.New("boom")},
	})

	assert.Equal(t, []BookReport{
		{Input: "a.epub", Output: "out/a.epub", Report: report},
		{Input: "b.epub", Output: "out/b.epub", Error: "boom"},
	}, got)
}

func TestWriteReport(t *testing.T) {
	report := &engine.Report{
		InputSize:  100,
		OutputSize: 60,
		Outcomes: []engine.Outcome{
			{Name: "images/a.png", Format: engine.FormatPNG, Action: engine.ActionTransformed, SizeIn: 50, SizeOut: 10},
		},
	}

	t.Run("json", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, WriteReport(t.Context(), fs, "/reports/run.json", report))

		data, err := afero.ReadFile(fs, "/reports/run.json")
		require.NoError(t, err)

		var decoded engine.Report
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, int64(60), decoded.OutputSize)
		require.Len(t, decoded.Outcomes, 1)
		assert.Equal(t, "images/a.png", decoded.Outcomes[0].Name)
	})

	t.Run("yaml", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, WriteReport(t.Context(), fs, "/reports/run.yaml", BookReports([]BookResult{
			{Input: "a.epub", Output: "b.epub", Report: report},
		})))

		data, err := afero.ReadFile(fs, "/reports/run.yaml")
		require.NoError(t, err)

		var decoded []map[string]any
		require.NoError(t, yaml.Unmarshal(data, &decoded))
		require.Len(t, decoded, 1)
		assert.Equal(t, "a.epub", decoded[0]["input"])
		assert.Contains(t, string(data), "format: png")
	})
}
