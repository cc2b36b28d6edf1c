package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/handlescan/handlescan/internal/output"
)

// outputSink pairs a writer with its cleanup so commands can treat stdout and
// result files uniformly.
type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func stdoutSink() *outputSink {
	return &outputSink{writer: os.Stdout, close: func() error { return nil }, path: "-"}
}

var formatExtensions = map[output.Format]string{
	output.FormatJSON:     "json",
	output.FormatMarkdown: "md",
	output.FormatTable:    "txt",
}

func outputExtension(format output.Format) string {
	if ext, ok := formatExtensions[format]; ok {
		return ext
	}
	return "txt"
}

// nonFilename matches runs of characters that are unsafe in generated file
// names. Usernames may contain anything a platform allows, so per-user result
// files squeeze those runs down to a single dash.
var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

func sanitizeFilename(value string) string {
	clean := nonFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "results"
	}
	return clean
}

// resolveOutputFormat reads the effective output format and applies the
// configured color mode. The persistent --format flag is bound to
// output.format, so flag, env, config file, and the built-in default all
// resolve through viper in that order.
func resolveOutputFormat() (output.Format, error) {
	if err := output.SetColorMode(viper.GetString("output.color")); err != nil {
		return "", err
	}
	return output.ParseFormat(viper.GetString("output.format"))
}

func resolveOutputTargets(outPath, outDir string) (string, string, error) {
	if strings.TrimSpace(outPath) != "" && strings.TrimSpace(outDir) != "" {
		return "", "", fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	return strings.TrimSpace(outPath), strings.TrimSpace(outDir), nil
}

// openSink opens path for writing, treating "" and "-" as stdout.
func openSink(path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return stdoutSink(), nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// ensureOutDir creates dir and returns its absolute path. An empty dir means
// no per-user files were requested.
func ensureOutDir(dir string) (string, error) {
	clean := strings.TrimSpace(dir)
	if clean == "" {
		return "", nil
	}
	if err := os.MkdirAll(clean, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if abs, err := filepath.Abs(clean); err == nil {
		return abs, nil
	}
	return clean, nil
}
