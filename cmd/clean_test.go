package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cleaner/internal/config"
	"github.com/sells-group/lead-cleaner/internal/model"
	"github.com/sells-group/lead-cleaner/internal/store"
)

func TestCleanFiles_FailureDoesNotSkipSiblings(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(bad, nil, 0o644)) // no header row
	require.NoError(t, os.WriteFile(good,
		[]byte("Name,Title,Company,Email\nAna,CEO,Acme,ana@acme.com\n"), 0o644))

	env, up, sender := newTestEnv(t)
	cfg = &config.Config{}
	cleanConcurrency = 1

	err := cleanFiles(context.Background(), env, []string{bad, good}, "[POSICION]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV data is missing headers.")

	// The sibling file must still run to completion.
	assert.Equal(t, "good.csv", up.uploaded())

	runs, err := env.Store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byFile := make(map[string]model.Run, len(runs))
	for _, r := range runs {
		byFile[r.FileName] = r
	}

	require.NotNil(t, byFile["bad.csv"].Result)
	assert.Equal(t, model.RunStatusFailed, byFile["bad.csv"].Status)
	assert.Equal(t, "CSV data is missing headers.", byFile["bad.csv"].Result.Error)
	assert.Equal(t, model.RunStatusComplete, byFile["good.csv"].Status)

	// One notification per terminal state, sequential order.
	subjects := sender.sent()
	require.Len(t, subjects, 2)
	assert.Contains(t, subjects[0], "failed")
	assert.Contains(t, subjects[1], "processed")
}

func TestCleanFile_UnreadableFileIsItsOwnError(t *testing.T) {
	env, _, sender := newTestEnv(t)
	cfg = &config.Config{}

	err := cleanFile(context.Background(), env, filepath.Join(t.TempDir(), "missing.csv"), "[POSICION]")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "missing headers",
		"an unreadable file is not a missing-header file")

	subjects := sender.sent()
	require.Len(t, subjects, 1)
	assert.Contains(t, subjects[0], "failed")
}
