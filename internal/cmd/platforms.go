package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handlescan/handlescan/internal/config"
	"github.com/handlescan/handlescan/internal/core"
	"github.com/handlescan/handlescan/internal/core/registry"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "Inspect the platform registry",
}

var platformsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := commandRegistry(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Platforms (%d):\n", reg.Len())
		for _, rule := range reg.Rules() {
			fmt.Printf("- %s (%s)\n", rule.ID, rule.Method)
		}
		return nil
	},
}

var platformsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show how a platform is probed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := strings.ToLower(strings.TrimSpace(args[0]))
		if id == "" {
			return errors.New("platform id is required")
		}

		reg, err := commandRegistry(cmd)
		if err != nil {
			return err
		}

		rule, ok := reg.Lookup(id)
		if !ok {
			return fmt.Errorf("platform %q not found", id)
		}

		printRule(rule)
		return nil
	},
}

var platformsSetsCmd = &cobra.Command{
	Use:   "sets",
	Short: "List named platform sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		records, err := st.ListSets(ctx)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No platform sets found.")
			return nil
		}

		fmt.Println("Platform sets:")
		for _, record := range records {
			suffix := ""
			if record.IsBuiltin {
				suffix = " (builtin)"
			}
			fmt.Printf("- %s%s: %s\n", record.Set.Name, suffix, strings.Join(record.Set.Platforms, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
	platformsCmd.PersistentFlags().String("registry", "", "Platform registry file (YAML)")
	platformsCmd.AddCommand(platformsListCmd)
	platformsCmd.AddCommand(platformsShowCmd)
	platformsCmd.AddCommand(platformsSetsCmd)
}

// commandRegistry loads the registry the same way check does: flag override
// first, then the configured file, then the compiled-in rules.
func commandRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	override := ""
	if f := cmd.Flags().Lookup("registry"); f != nil {
		override = f.Value.String()
	}
	return buildRegistry(cfg, override)
}

func printRule(rule core.Rule) {
	fmt.Printf("Platform: %s\n", rule.ID)
	fmt.Printf("Method: %s\n", rule.Method)
	fmt.Printf("URL template: %s\n", rule.URLTemplate)

	switch rule.Method {
	case core.MethodStatusCode:
		fmt.Printf("Available status: %d\n", rule.AvailableStatus)
		fmt.Printf("Taken status: %d\n", rule.TakenStatus)
	case core.MethodContentMatch:
		fmt.Printf("Available marker: %q\n", rule.AvailableText)
		fmt.Printf("Taken marker: %q\n", rule.TakenText)
	}
}
