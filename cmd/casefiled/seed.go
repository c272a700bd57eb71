package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"casefile/internal/core"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install bootstrap roles, accounts, and the statute catalog",
	Long: `Seed the configured store with the default role matrix, the admin and
duty officer accounts, and the statute catalog. Account passwords come from
CASEFILE_ADMIN_PASSWORD and CASEFILE_OFFICER_PASSWORD, with development
fallbacks. Seeding is idempotent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := core.SeedDefaults(context.Background(), store); err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}
		fmt.Printf("store ready: %d roles, %d users, %d legal sections\n",
			len(store.ListRoles()), len(store.ListUsers()), len(store.ListLegalSections()))
		return nil
	},
}
