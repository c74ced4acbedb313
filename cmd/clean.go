package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-cleaner/internal/ingest"
	"github.com/sells-group/lead-cleaner/internal/model"
	"github.com/sells-group/lead-cleaner/internal/pipeline"
	"github.com/sells-group/lead-cleaner/internal/store"
)

var (
	cleanPrompt      string
	cleanPromptFile  string
	cleanConcurrency int
	cleanDryRun      bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>...",
	Short: "Clean one or more lead list files",
	Long: `Runs each file through the cleaning pipeline: every row gets an LLM
classification, a per-company bundle number, and a mail provider result, and
the cleaned CSV is uploaded to the configured sink.

Input files may be CSV or XLSX; non-UTF-8 CSV files are transcoded using the
configured fallback charset.

Examples:
  # Clean a single export with an inline prompt
  lead-cleaner clean leads.csv --prompt 'Is [POSICION] a decision maker? Answer Si or No.'

  # Clean several files concurrently, prompt from a file
  lead-cleaner clean a.csv b.xlsx --prompt-file prompt.txt --concurrency 2

  # Parse only, no network calls
  lead-cleaner clean leads.csv --prompt x --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		prompt, err := loadPrompt()
		if err != nil {
			return err
		}

		if cleanDryRun {
			return dryRunFiles(args)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return cleanFiles(ctx, env, args, prompt)
	},
}

// cleanFiles attempts every file. Datasets are independent runs: one file
// failing must not cancel or skip its siblings, so the group carries no
// shared context.
func cleanFiles(ctx context.Context, env *cleanerEnv, paths []string, prompt string) error {
	var g errgroup.Group
	g.SetLimit(cleanConcurrency)

	for _, path := range paths {
		g.Go(func() error {
			return cleanFile(ctx, env, path, prompt)
		})
	}
	return g.Wait()
}

func loadPrompt() (string, error) {
	if cleanPrompt != "" && cleanPromptFile != "" {
		return "", eris.New("use either --prompt or --prompt-file, not both")
	}
	if cleanPromptFile != "" {
		data, err := os.ReadFile(cleanPromptFile)
		if err != nil {
			return "", eris.Wrap(err, "read prompt file")
		}
		return strings.TrimSpace(string(data)), nil
	}
	if cleanPrompt == "" {
		return "", eris.New("a prompt template is required (--prompt or --prompt-file)")
	}
	return cleanPrompt, nil
}

// parseFile reads a lead list from disk, picking the parser by extension.
func parseFile(path string) (*model.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ingest.ParseXLSX(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	decoded, err := ingest.DecodeToUTF8(data, cfg.Ingest.FallbackCharset)
	if err != nil {
		return nil, eris.Wrapf(err, "decode %s", path)
	}
	return ingest.ParseCSV(bytes.NewReader(decoded))
}

func dryRunFiles(paths []string) error {
	for _, path := range paths {
		table, err := parseFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d columns, %d rows\n", path, len(table.Header), len(table.Rows))
	}
	return nil
}

// cleanFile runs one file to a terminal state and records the run. A failed
// run is reported through the run record and the exit code, after all files
// have been attempted by the errgroup.
func cleanFile(ctx context.Context, env *cleanerEnv, path, prompt string) error {
	fileName := filepath.Base(path)

	run, err := env.Store.CreateRun(ctx, fileName)
	if err != nil {
		return err
	}
	if err := env.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusProcessing); err != nil {
		return err
	}

	table, err := parseFile(path)
	if err != nil {
		result := env.Processor.FailParse(ctx, fileName, err)
		completeRun(ctx, env.Store, run.ID, result)
		return eris.Errorf("%s: %s", fileName, result.Error)
	}

	result := env.Processor.Process(ctx, &pipeline.Dataset{
		FileName: fileName,
		Prompt:   prompt,
		Table:    table,
	})

	completeRun(ctx, env.Store, run.ID, result)

	if result.Failed() {
		return eris.Errorf("%s: %s", fileName, result.Error)
	}
	fmt.Printf("%s: %s\n", fileName, result.ArtifactLink)
	return nil
}

// completeRun is shared with the serve command's background tasks.
func completeRun(ctx context.Context, st store.Store, runID string, result *model.TaskResult) {
	status := model.RunStatusComplete
	if result.Failed() {
		status = model.RunStatusFailed
	}
	if err := st.CompleteRun(ctx, runID, status, result); err != nil {
		zap.L().Warn("record run result", zap.String("run", runID), zap.Error(err))
	}
}

func init() {
	cleanCmd.Flags().StringVar(&cleanPrompt, "prompt", "", "prompt template (must contain "+pipeline.PlaceholderToken+")")
	cleanCmd.Flags().StringVar(&cleanPromptFile, "prompt-file", "", "read the prompt template from a file")
	cleanCmd.Flags().IntVar(&cleanConcurrency, "concurrency", 1, "number of files processed in parallel")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "parse inputs and exit without processing")
	rootCmd.AddCommand(cleanCmd)
}
