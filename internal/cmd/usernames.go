package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/handlescan/handlescan/internal/core"
)

// usernameAccumulator lowercases, validates, and deduplicates names while
// preserving first-seen order.
type usernameAccumulator struct {
	names []string
	seen  map[string]struct{}
}

func newUsernameAccumulator(capacity int) *usernameAccumulator {
	return &usernameAccumulator{
		names: make([]string, 0, capacity),
		seen:  make(map[string]struct{}, capacity),
	}
}

// add normalizes raw and appends it unless it is empty, invalid, or already
// present.
func (a *usernameAccumulator) add(raw string) error {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return nil
	}
	if err := core.ValidateUsername(name); err != nil {
		return err
	}
	if _, dup := a.seen[name]; !dup {
		a.seen[name] = struct{}{}
		a.names = append(a.names, name)
	}
	return nil
}

// resolveUsernames collects the usernames for a multi-name run from either
// the positional args or a names file ("-" reads stdin). The two sources are
// mutually exclusive.
func resolveUsernames(positional []string, namesFile string) ([]string, error) {
	if file := strings.TrimSpace(namesFile); file != "" {
		if len(positional) > 0 {
			return nil, fmt.Errorf("cannot combine positional usernames with --names-file")
		}
		return readUsernamesFile(file)
	}

	acc := newUsernameAccumulator(len(positional))
	for _, raw := range positional {
		if err := acc.add(raw); err != nil {
			return nil, err
		}
	}
	if len(acc.names) == 0 {
		return nil, fmt.Errorf("at least one username is required")
	}
	return acc.names, nil
}

// readUsernamesFile parses one username per line, skipping blanks and
// #-comments.
func readUsernamesFile(path string) ([]string, error) {
	var reader io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}

	acc := newUsernameAccumulator(0)
	scanner := bufio.NewScanner(reader)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(text, "#") {
			continue
		}
		if err := acc.add(text); err != nil {
			return nil, fmt.Errorf("invalid username on line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(acc.names) == 0 {
		return nil, fmt.Errorf("no usernames found")
	}
	return acc.names, nil
}
