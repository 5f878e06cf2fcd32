// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeitlabs/payfort/internal/payments"
	"github.com/zeitlabs/payfort/internal/payments/store"
	"github.com/zeitlabs/payfort/internal/persistence/sqlite"
)

var errIntegrity = errors.New("database integrity check failed")

func dbCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect the payments database",
	}

	var mode string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Run an SQLite integrity check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checkMode, err := sqlite.ParseCheckMode(mode)
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			problems, err := sqlite.VerifyIntegrity(cmd.Context(), cfg.DatabasePath, checkMode)
			if err != nil {
				return err
			}
			for _, p := range problems {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			if len(problems) > 0 {
				return errIntegrity
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", cfg.DatabasePath)
			return nil
		},
	}
	verify.Flags().StringVar(&mode, "mode", string(sqlite.QuickCheck), "quick or full")
	cmd.AddCommand(verify)

	seed := store.DefaultCartSeed()
	var status string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a cart for manual checkout testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch payments.CartStatus(status) {
			case payments.CartPending, payments.CartProcessing, payments.CartPaid:
				seed.Status = payments.CartStatus(status)
			default:
				return fmt.Errorf("unknown cart status %q", status)
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			seeded, err := st.SeedCart(cmd.Context(), seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cart %d (merchant_reference %d-%d) pay at %s/payfort/pay/%d/\n",
				seeded.CartID, seeded.Site.ID, seeded.CartID, cfg.PublicBaseURL, seeded.CartID)
			return nil
		},
	}
	seedCmd.Flags().StringVar(&seed.Username, "user", seed.Username, "buyer username")
	seedCmd.Flags().StringVar(&seed.Email, "email", seed.Email, "buyer email")
	seedCmd.Flags().StringVar(&seed.SiteDomain, "site", seed.SiteDomain, "site domain")
	seedCmd.Flags().StringVar(&seed.SKU, "sku", seed.SKU, "catalogue item SKU")
	seedCmd.Flags().StringVar(&seed.CourseID, "course", seed.CourseID, "course id")
	seedCmd.Flags().Int64Var(&seed.Price, "price", seed.Price, "price in minor units")
	seedCmd.Flags().StringVar(&seed.Currency, "currency", seed.Currency, "currency code")
	seedCmd.Flags().StringVar(&status, "status", string(seed.Status), "cart status")
	cmd.AddCommand(seedCmd)

	return cmd
}
