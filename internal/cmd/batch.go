package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handlescan/handlescan/internal/config"
	"github.com/handlescan/handlescan/internal/core"
	"github.com/handlescan/handlescan/internal/core/engine"
	"github.com/handlescan/handlescan/internal/metrics"
	"github.com/handlescan/handlescan/internal/observability"
	"github.com/handlescan/handlescan/internal/output"
)

var batchCmd = &cobra.Command{
	Use:   "batch [usernames...]",
	Short: "Check multiple usernames",
	Long:  "Check availability for several usernames, from arguments or a names file",
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("names-file", "", "Read usernames from file, one per line (\"-\" for stdin)")
	batchCmd.Flags().StringSlice("platforms", nil, "Platform ids to probe (comma-separated)")
	batchCmd.Flags().String("set", "", "Named platform set (builtin or stored)")
	batchCmd.Flags().String("registry", "", "Platform registry file (YAML)")
	batchCmd.Flags().Bool("available-only", false, "Only show usernames available on every probed platform")
	batchCmd.Flags().Int("workers", 0, "Usernames checked concurrently (defaults from config)")
	batchCmd.Flags().String("out", "", "Write combined output to file")
	batchCmd.Flags().String("out-dir", "", "Write one result file per username into directory")
	batchCmd.Flags().Bool("no-store", false, "Skip recording results in history")
}

func runBatch(cmd *cobra.Command, args []string) error {
	namesFile, err := cmd.Flags().GetString("names-file")
	if err != nil {
		return err
	}
	names, err := resolveUsernames(args, namesFile)
	if err != nil {
		return err
	}

	platforms, err := cmd.Flags().GetStringSlice("platforms")
	if err != nil {
		return err
	}
	setName, err := cmd.Flags().GetString("set")
	if err != nil {
		return err
	}
	registryPath, err := cmd.Flags().GetString("registry")
	if err != nil {
		return err
	}
	availableOnly, err := cmd.Flags().GetBool("available-only")
	if err != nil {
		return err
	}
	noStore, err := cmd.Flags().GetBool("no-store")
	if err != nil {
		return err
	}

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return err
	}
	outPath, outDir, err = resolveOutputTargets(outPath, outDir)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	startedAt := time.Now()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

	cfg := config.GetConfig()
	if cfg == nil {
		return errors.New("config not loaded")
	}

	reg, err := buildRegistry(cfg, registryPath)
	if err != nil {
		return err
	}

	rules, err := resolveRules(ctx, st, reg, platforms, setName)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return errors.New("at least one platform is required")
	}

	workers := cfg.Workers
	if cmd.Flags().Changed("workers") {
		workers, err = cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}
		if workers < 1 {
			return errors.New("workers must be at least 1")
		}
	}
	if workers < 1 {
		workers = 1
	}

	prober := buildProber(cmd, cfg)

	results, err := runBatchChecks(ctx, prober, rules, names, workers)
	if err != nil {
		return err
	}

	if !noStore {
		for _, batch := range results {
			if batch == nil || batch.Result == nil {
				continue
			}
			if err := st.RecordCheck(ctx, batch.Result); err != nil {
				observability.CLILogger.Warn("Failed to record check history",
					zap.String("username", batch.Username),
					zap.Error(err))
			}
		}
	}

	results = filterBatchResults(results, availableOnly)

	format, err := resolveOutputFormat()
	if err != nil {
		return err
	}

	if outDir != "" {
		dir, err := ensureOutDir(outDir)
		if err != nil {
			return err
		}
		if err := writeBatchFiles(dir, format, results); err != nil {
			return err
		}
	} else {
		rendered, err := output.FormatCheckList(format, results)
		if err != nil {
			return err
		}
		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer sink.close() // nolint:errcheck // close errors are secondary to render errors
		if strings.TrimSpace(rendered) != "" {
			fmt.Fprintln(sink.writer, rendered)
		}
	}

	logThroughput(totalProbes(results), startedAt)
	return nil
}

type batchJob struct {
	index    int
	username string
}

// runBatchChecks fans the usernames out over a bounded worker pool sharing
// one prober. The first probe error cancels the remaining jobs.
func runBatchChecks(ctx context.Context, prober *engine.Prober, rules []core.Rule, usernames []string, workers int) ([]*core.BatchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*core.BatchResult, len(usernames))
	jobs := make(chan batchJob)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	setErr := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	worker := func() {
		defer wg.Done()
		for job := range jobs {
			if ctx.Err() != nil {
				return
			}
			start := time.Now()
			check, err := prober.Probe(ctx, job.username, rules)
			if err != nil {
				// Failed probes still take wall time worth recording.
				metrics.RecordCheckDuration("cli_batch", time.Since(start))
				setErr(err)
				return
			}
			metrics.RecordCheck("cli_batch", check)
			results[job.index] = summarizeCheck(job.username, check)
		}
	}

	if workers > len(usernames) {
		workers = len(usernames)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for i, username := range usernames {
		select {
		case <-ctx.Done():
			break sendLoop
		case jobs <- batchJob{index: i, username: username}:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return results, nil
}

func summarizeCheck(username string, result *core.CheckResult) *core.BatchResult {
	if result == nil {
		return nil
	}
	return &core.BatchResult{
		Username:    username,
		Score:       len(result.Available),
		Total:       result.Probed(),
		CompletedAt: time.Now().UTC(),
		Result:      result,
	}
}

func filterBatchResults(results []*core.BatchResult, availableOnly bool) []*core.BatchResult {
	if !availableOnly {
		return results
	}

	filtered := make([]*core.BatchResult, 0, len(results))
	for _, result := range results {
		if result == nil {
			continue
		}
		if result.Total > 0 && result.Score == result.Total {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

func totalProbes(results []*core.BatchResult) int {
	total := 0
	for _, result := range results {
		if result == nil {
			continue
		}
		total += result.Total
	}
	return total
}

func writeBatchFiles(dir string, format output.Format, results []*core.BatchResult) error {
	formatter := output.NewFormatter(format)
	ext := outputExtension(format)

	written := 0
	for _, result := range results {
		if result == nil || result.Result == nil {
			continue
		}
		rendered, err := formatter.FormatCheck(result.Result)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, sanitizeFilename(result.Username)+"."+ext)
		if err := os.WriteFile(path, []byte(rendered+"\n"), 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written++
	}

	fmt.Printf("Wrote %d result files to %s\n", written, dir)
	return nil
}
