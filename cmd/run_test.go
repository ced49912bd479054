package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/turnover-cli/internal/model"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunBatch_WritesOutputInOrder(t *testing.T) {
	in := writeInput(t, "name,city,turnover\n"+
		"Acme Logistics,Pune,\n"+
		"Ram Hardware,Agra,between 10 crore and 20 crore\n"+
		"Zenith Holdings,Delhi,\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	var stdout bytes.Buffer
	err := runBatch(context.Background(), testConfig(), runOptions{Input: in, Output: out}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "done: "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, header+
		"Acme Logistics,Pune,25.00 Cr,Transportation,Logistics,freight\n"+
		"Ram Hardware,Agra,15.00 Cr,Retail,Specialty,hardware retail\n"+
		"Zenith Holdings,Delhi,10.00 Cr,,,\n",
		string(data))
}

func TestRunBatch_Limit(t *testing.T) {
	in := writeInput(t, "name,city\nA,X\nB,Y\nC,Z\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, runBatch(context.Background(), testConfig(), runOptions{Input: in, Output: out, Limit: 2}, &bytes.Buffer{}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count(data, []byte("\n")))
}

func TestRunBatch_DryRun(t *testing.T) {
	in := writeInput(t, "company_name,city,revenue\nAcme,Pune,5 crore\n,Nowhere,\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	var stdout bytes.Buffer
	require.NoError(t, runBatch(context.Background(), testConfig(), runOptions{Input: in, Output: out, DryRun: true}, &stdout))

	var recs []model.InputRecord
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &recs))
	assert.Equal(t, []model.InputRecord{{Name: "Acme", City: "Pune", TurnoverRaw: "5 crore"}}, recs)

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestRunBatch_Preview(t *testing.T) {
	in := writeInput(t, "name,city\nAcme Logistics,Pune\n")
	out := filepath.Join(t.TempDir(), "out.csv")

	var stdout bytes.Buffer
	require.NoError(t, runBatch(context.Background(), testConfig(), runOptions{Input: in, Output: out, Preview: true}, &stdout))
	assert.Contains(t, stdout.String(), header)
	assert.Contains(t, stdout.String(), "Acme Logistics,Pune,25.00 Cr")
}

func TestRunBatch_NonUTF8Input(t *testing.T) {
	in := writeInput(t, "name,city\nCaf\xe9,Pune\n")

	err := runBatch(context.Background(), testConfig(), runOptions{Input: in, Output: filepath.Join(t.TempDir(), "o.csv")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UTF-8")
}

func TestRunBatch_MissingInput(t *testing.T) {
	err := runBatch(context.Background(), testConfig(), runOptions{Input: filepath.Join(t.TempDir(), "nope.csv")}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestRunOptionsFromFlags_RequiresInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("input", "", "")
	cmd.Flags().String("output", "output_extracted.csv", "")
	cmd.Flags().Int("limit", 0, "")
	cmd.Flags().Bool("dry-run", false, "")
	cmd.Flags().Bool("preview", false, "")

	_, err := runOptionsFromFlags(cmd)
	require.Error(t, err)

	require.NoError(t, cmd.Flags().Set("input", "in.csv"))
	o, err := runOptionsFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "in.csv", o.Input)
	assert.Equal(t, "output_extracted.csv", o.Output)
}

func TestApplyRunOverrides(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("fast", true, "")
	cmd.Flags().Bool("deep-fetch", false, "")
	cmd.Flags().Int("workers", 0, "")

	c := testConfig()
	applyRunOverrides(cmd, c)
	assert.True(t, c.Pipeline.FastMode)
	assert.Equal(t, 4, c.Pipeline.Workers)

	require.NoError(t, cmd.Flags().Set("fast", "false"))
	require.NoError(t, cmd.Flags().Set("deep-fetch", "true"))
	require.NoError(t, cmd.Flags().Set("workers", "9"))
	applyRunOverrides(cmd, c)
	assert.False(t, c.Pipeline.FastMode)
	assert.True(t, c.Pipeline.DeepFetch)
	assert.Equal(t, 9, c.Pipeline.Workers)
}

func TestRunBatch_WithSQLiteLedger(t *testing.T) {
	c := testConfig()
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "ledger.db")

	in := writeInput(t, "name,city\nAcme,Pune\n")
	require.NoError(t, runBatch(context.Background(), c, runOptions{Input: in, Output: filepath.Join(t.TempDir(), "o.csv")}, &bytes.Buffer{}))

	st, err := initStore(context.Background(), c)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "companies.csv", runs[0].Source)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Stats)
	assert.Equal(t, 1, runs[0].Stats.BySource[model.SourceEstimate])
}
