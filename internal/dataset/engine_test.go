package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusforge/fimgen/internal/manifest"
)

// writeCorpus writes a JSONL corpus file of plain text records.
func writeCorpus(t *testing.T, dir, name string, texts []string) string {
	t.Helper()
	var b strings.Builder
	for _, txt := range texts {
		line, err := json.Marshal(map[string]string{"text": txt})
		require.NoError(t, err)
		b.Write(line)
		b.WriteByte('\n')
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// readLines reads a JSONL output back, asserting every line is an
// object with exactly one text field.
func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	var texts []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1<<20), 16<<20)
	for sc.Scan() {
		var obj map[string]string
		require.NoError(t, json.Unmarshal(sc.Bytes(), &obj))
		require.Len(t, obj, 1)
		texts = append(texts, obj["text"])
	}
	require.NoError(t, sc.Err())
	return texts
}

func corpusTexts(prefix string, n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("%s record %02d padded to a useful length", prefix, i)
	}
	return texts
}

func TestEngineRunMix(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := writeCorpus(t, dir, "alpha.jsonl", corpusTexts("alpha", 10))
	b := writeCorpus(t, dir, "beta.jsonl", corpusTexts("beta", 6))
	outDir := t.TempDir()

	eng := NewEngine(lineSelector(t, 10, 200), nil, 42, "", 2)
	stats, err := eng.RunMix(context.Background(), MixRequest{
		Inputs:  []string{a, b},
		Percent: 50,
		Mode:    MixInterleave,
		OutDir:  outDir,
	})
	require.NoError(t, err)

	aOut := readLines(t, filepath.Join(outDir, "alpha_50FIM.jsonl"))
	bOut := readLines(t, filepath.Join(outDir, "beta_50FIM.jsonl"))
	assert.Len(t, aOut, 15)
	assert.Len(t, bOut, 9)
	assert.Equal(t, 5, countTagged(aOut))
	assert.Equal(t, 3, countTagged(bOut))

	assert.Equal(t, 16, stats.RecordsSeen)
	assert.Equal(t, 8, stats.Converted)
	assert.Equal(t, 24, stats.Written)
}

func TestEngineRunMixDeterministicAcrossOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := writeCorpus(t, dir, "alpha.jsonl", corpusTexts("alpha", 10))
	b := writeCorpus(t, dir, "beta.jsonl", corpusTexts("beta", 6))

	run := func(outDir string, inputs []string) {
		eng := NewEngine(lineSelector(t, 10, 200), nil, 42, "", 2)
		_, err := eng.RunMix(context.Background(), MixRequest{
			Inputs:  inputs,
			Percent: 30,
			Mode:    MixRandomReplay,
			OutDir:  outDir,
		})
		require.NoError(t, err)
	}

	out1, out2 := t.TempDir(), t.TempDir()
	run(out1, []string{a, b})
	run(out2, []string{b, a})

	// Per-file seeds depend only on the basename, so batch order and
	// scheduling cannot change any output file.
	for _, name := range []string{"alpha_30FIM.jsonl", "beta_30FIM.jsonl"} {
		first, err := os.ReadFile(filepath.Join(out1, name))
		require.NoError(t, err)
		second, err := os.ReadFile(filepath.Join(out2, name))
		require.NoError(t, err)
		assert.Equal(t, first, second, name)
	}
}

func TestEngineRunEval(t *testing.T) {
	t.Parallel()
	input := writeCorpus(t, t.TempDir(), "raw.jsonl", corpusTexts("gamma", 8))
	output := filepath.Join(t.TempDir(), "eval.jsonl")

	eng := NewEngine(lineSelector(t, 10, 200), nil, 42, "", 0)
	stats, err := eng.RunEval(context.Background(), EvalRequest{
		Input:      input,
		Output:     output,
		SamplesCap: 5,
	})
	require.NoError(t, err)

	lines := readLines(t, output)
	assert.Len(t, lines, 5)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, tagPrefix))
	}
	assert.Equal(t, 5, stats.Written)
}

func TestEngineRunEvalMissingInput(t *testing.T) {
	t.Parallel()
	eng := NewEngine(lineSelector(t, 10, 200), nil, 42, "", 0)

	_, err := eng.RunEval(context.Background(), EvalRequest{
		Input:  filepath.Join(t.TempDir(), "absent.jsonl"),
		Output: filepath.Join(t.TempDir(), "eval.jsonl"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corpus: open")
}

func TestEngineManifestLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := manifest.NewSQLite(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck
	require.NoError(t, store.Migrate(ctx))

	dir := t.TempDir()
	good := writeCorpus(t, dir, "good.jsonl", corpusTexts("good", 4))
	missing := filepath.Join(dir, "missing.jsonl")

	eng := NewEngine(lineSelector(t, 10, 200), store, 42, "", 1)
	_, err = eng.RunMix(ctx, MixRequest{
		Inputs:  []string{good, missing},
		Percent: 50,
		Mode:    MixInterleave,
		OutDir:  t.TempDir(),
	})
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, manifest.RunFilter{Mode: "mix"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, manifest.RunStatusComplete, runs[0].Status)
	assert.Contains(t, string(runs[0].Params), "good.jsonl")
	assert.Contains(t, string(runs[0].Stats), `"written"`)

	files, err := store.ListFiles(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, files, 2)

	var okFile, badFile manifest.FileResult
	for _, f := range files {
		if f.Error == "" {
			okFile = f
		} else {
			badFile = f
		}
	}
	assert.Equal(t, good, okFile.Input)
	assert.Contains(t, okFile.Output, "good_50FIM.jsonl")
	assert.Contains(t, string(okFile.Stats), `"converted"`)
	assert.Equal(t, missing, badFile.Input)
	assert.Contains(t, badFile.Error, "corpus: open")
}

func TestEngineRunMixAllFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := manifest.NewSQLite(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck
	require.NoError(t, store.Migrate(ctx))

	dir := t.TempDir()
	eng := NewEngine(lineSelector(t, 10, 200), store, 42, "", 2)
	_, err = eng.RunMix(ctx, MixRequest{
		Inputs:  []string{filepath.Join(dir, "a.jsonl"), filepath.Join(dir, "b.jsonl")},
		Percent: 20,
		Mode:    MixInterleave,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input files failed")

	runs, err := store.ListRuns(ctx, manifest.RunFilter{Status: manifest.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].Error)
}

func TestOutputName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input   string
		percent float64
		outDir  string
		outExt  string
		want    string
	}{
		{"corpus.jsonl", 20, "", "", "corpus_20FIM.jsonl"},
		{filepath.Join("/data", "corpus.jsonl"), 20, "", "", filepath.Join("/data", "corpus_20FIM.jsonl")},
		{filepath.Join("/data", "corpus.jsonl"), 20, "/out", "", filepath.Join("/out", "corpus_20FIM.jsonl")},
		{"corpus.jsonl", 20, "", ".txt", "corpus_20FIM.txt"},
		{"corpus.jsonl", 12.5, "", "", "corpus_12FIM.jsonl"},
		{"corpus", 35, "", "", "corpus_35FIM.jsonl"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, OutputName(tc.input, tc.percent, tc.outDir, tc.outExt), tc.input)
	}
}

func TestFileSeed(t *testing.T) {
	t.Parallel()

	// Only the basename matters, so moving a file between directories
	// does not change its conversion.
	assert.Equal(t,
		fileSeed(42, filepath.Join("/a", "x.jsonl")),
		fileSeed(42, filepath.Join("/b", "x.jsonl")),
	)
	assert.NotEqual(t,
		fileSeed(42, "x.jsonl"),
		fileSeed(42, "y.jsonl"),
	)
	assert.NotEqual(t,
		fileSeed(42, "x.jsonl"),
		fileSeed(7, "x.jsonl"),
	)
}
