package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handlescan/handlescan/internal/config"
	"github.com/handlescan/handlescan/internal/core"
	"github.com/handlescan/handlescan/internal/core/engine"
	"github.com/handlescan/handlescan/internal/core/registry"
	"github.com/handlescan/handlescan/internal/metrics"
	"github.com/handlescan/handlescan/internal/observability"
	"github.com/handlescan/handlescan/internal/output"
	"github.com/handlescan/handlescan/internal/suggest"
)

var checkCmd = &cobra.Command{
	Use:   "check <username>",
	Short: "Check username availability",
	Long:  "Check if a username is available across the configured platforms",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringSlice("platforms", nil, "Platform ids to probe (comma-separated)")
	checkCmd.Flags().String("set", "", "Named platform set (builtin or stored)")
	checkCmd.Flags().Bool("quick", false, "Quick mode: report only definitive verdicts")
	checkCmd.Flags().Int("concurrency", 0, "Concurrent probes (defaults from config)")
	checkCmd.Flags().Duration("delay", 0, "Courtesy delay before each probe (0 disables)")
	checkCmd.Flags().Duration("timeout", 0, "Per-probe timeout (defaults from config)")
	checkCmd.Flags().String("registry", "", "Platform registry file (YAML)")
	checkCmd.Flags().String("out", "", "Write output to file instead of stdout")
	checkCmd.Flags().Int("suggest", 0, "Suggest up to N alternate handles when taken")
	checkCmd.Flags().Bool("no-store", false, "Skip recording the result in history")
}

func runCheck(cmd *cobra.Command, args []string) error {
	username := strings.ToLower(strings.TrimSpace(args[0]))
	if err := core.ValidateUsername(username); err != nil {
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
	quick, err := cmd.Flags().GetBool("quick")
	if err != nil {
		return err
	}
	registryPath, err := cmd.Flags().GetString("registry")
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	suggestLimit, err := cmd.Flags().GetInt("suggest")
	if err != nil {
		return err
	}
	noStore, err := cmd.Flags().GetBool("no-store")
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

	prober := buildProber(cmd, cfg)

	format, err := resolveOutputFormat()
	if err != nil {
		return err
	}
	formatter := output.NewFormatter(format)

	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer sink.close() // nolint:errcheck // close errors are secondary to render errors

	if quick {
		result, err := prober.QuickProbe(ctx, username, rules)
		if err != nil {
			return err
		}
		metrics.RecordQuickCheck("cli_quick", result)

		rendered, err := formatter.FormatQuick(result)
		if err != nil {
			return err
		}
		if rendered != "" {
			fmt.Fprintln(sink.writer, rendered)
		}
		return nil
	}

	result, err := prober.Probe(ctx, username, rules)
	if err != nil {
		return err
	}
	metrics.RecordCheck("cli", result)

	if !noStore {
		if err := st.RecordCheck(ctx, result); err != nil {
			observability.CLILogger.Warn("Failed to record check history", zap.Error(err))
		}
	}

	rendered, err := formatter.FormatCheck(result)
	if err != nil {
		return err
	}

	// Suggestions are a presentation concern and stay out of the JSON record.
	if suggestLimit > 0 && format != output.FormatJSON {
		if alternates := suggest.ForResult(result, suggestLimit); len(alternates) > 0 {
			metrics.RecordSuggestions(len(alternates))
			if section, ok := output.SuggestionsSection(alternates); ok {
				rendered += output.RenderSections([]output.Section{section}, format == output.FormatMarkdown)
			}
		}
	}

	if rendered != "" {
		fmt.Fprintln(sink.writer, rendered)
	}

	if format != output.FormatJSON && sink.path == "-" {
		logThroughput(result.Probed(), startedAt)
	}
	return nil
}

// buildProber assembles the probing engine from config, letting explicit
// flags override per invocation. An explicit --delay 0 disables the courtesy
// pause rather than falling back to the engine default.
func buildProber(cmd *cobra.Command, cfg *config.Config) *engine.Prober {
	prober := &engine.Prober{
		UserAgent:   cfg.Probe.UserAgent,
		Delay:       cfg.Probe.Delay,
		Timeout:     cfg.Probe.Timeout,
		Concurrency: cfg.Probe.Concurrency,
	}

	if cmd.Flags().Changed("concurrency") {
		if v, err := cmd.Flags().GetInt("concurrency"); err == nil {
			prober.Concurrency = v
		}
	}
	if cmd.Flags().Changed("delay") {
		if v, err := cmd.Flags().GetDuration("delay"); err == nil {
			if v == 0 {
				v = -1
			}
			prober.Delay = v
		}
	}
	if cmd.Flags().Changed("timeout") {
		if v, err := cmd.Flags().GetDuration("timeout"); err == nil {
			prober.Timeout = v
		}
	}

	return prober
}

// buildRegistry loads the platform registry, preferring an explicit file
// override, then the configured registry file, then the compiled-in rules.
func buildRegistry(cfg *config.Config, override string) (*registry.Registry, error) {
	path := strings.TrimSpace(override)
	if path == "" && cfg != nil {
		path = strings.TrimSpace(cfg.Registry.File)
	}
	if path == "" {
		return registry.BuiltIn(), nil
	}
	return registry.LoadFile(path)
}

type setGetter interface {
	GetSet(ctx context.Context, name string) (*core.PlatformSetRecord, error)
}

// resolveRules turns the --platforms / --set selection into registry rules.
// With neither given, every registered platform is probed.
func resolveRules(ctx context.Context, sets setGetter, reg *registry.Registry, platforms []string, setName string) ([]core.Rule, error) {
	ids := normalizePlatforms(platforms)
	setName = strings.TrimSpace(setName)

	if len(ids) > 0 && setName != "" {
		return nil, errors.New("--platforms and --set are mutually exclusive")
	}

	if len(ids) > 0 {
		return reg.Subset(ids)
	}

	if setName != "" {
		members, err := resolveSetMembers(ctx, sets, setName)
		if err != nil {
			return nil, err
		}
		return reg.Subset(members)
	}

	return reg.Rules(), nil
}

// resolveSetMembers looks a set name up in the built-ins first, then the
// store, so a stale stored copy cannot shadow a built-in.
func resolveSetMembers(ctx context.Context, sets setGetter, name string) ([]string, error) {
	if set, ok := core.FindBuiltInSet(name); ok {
		return set.Platforms, nil
	}

	if sets != nil {
		record, err := sets.GetSet(ctx, name)
		if err != nil {
			return nil, err
		}
		if record != nil {
			return record.Set.Platforms, nil
		}
	}

	return nil, fmt.Errorf("platform set %q not found", name)
}

func normalizePlatforms(values []string) []string {
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			id := strings.ToLower(strings.TrimSpace(part))
			if id == "" {
				continue
			}
			seen[id] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	if len(result) == 0 {
		return nil
	}

	sort.Strings(result)
	return result
}

func logThroughput(count int, startedAt time.Time) {
	if count <= 0 {
		return
	}
	elapsed := time.Since(startedAt)
	if elapsed <= 0 {
		return
	}
	rate := float64(count) / elapsed.Seconds()
	observability.CLILogger.Info(
		"Probe throughput",
		zap.Int("probes", count),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rate_per_sec", rate),
	)
}
