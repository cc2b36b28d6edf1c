package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handlescan/handlescan/internal/config"
	"github.com/handlescan/handlescan/internal/core/store"
)

// openStore loads config, opens the history store, and brings the schema and
// built-in platform sets up to date. Callers own the returned handle.
func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.SeedBuiltInSets(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the local check-history store",
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the store and apply migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		cfg := config.GetConfig()
		if cfg == nil {
			return errors.New("config not loaded")
		}

		fmt.Printf("Store initialized (%s)\n", db.Driver())
		fmt.Printf("Path: %s\n", storeLocation(cfg))
		return nil
	},
}

var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store connectivity and seeded sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		sets, err := db.ListSets(ctx)
		if err != nil {
			return err
		}

		builtin := 0
		for _, record := range sets {
			if record.IsBuiltin {
				builtin++
			}
		}

		cfg := config.GetConfig()
		if cfg == nil {
			return errors.New("config not loaded")
		}

		fmt.Printf("Driver: %s\n", db.Driver())
		fmt.Printf("Location: %s\n", storeLocation(cfg))
		fmt.Printf("Platform sets: %d (%d builtin)\n", len(sets), builtin)
		return nil
	},
}

var storePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved store location",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		fmt.Println(storeLocation(cfg))
		return nil
	},
}

func storeLocation(cfg *config.Config) string {
	if cfg.Store.URL != "" {
		return cfg.Store.URL
	}
	if cfg.Store.Path != "" {
		return cfg.Store.Path
	}
	return config.DefaultStorePath()
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storePathCmd)
}
