// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/zeitlabs/payfort/internal/audit"
)

func auditCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the persistent audit journal",
	}

	var (
		filter audit.Filter
		action string
	)
	query := &cobra.Command{
		Use:   "query",
		Short: "Print journal events as JSON lines, oldest first per cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if action != "" {
				a, err := audit.ParseAction(action)
				if err != nil {
					return err
				}
				filter.Action = a
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			j, err := audit.OpenJournal(cfg.Audit.JournalPath, cfg.Audit.Retention)
			if err != nil {
				return err
			}
			defer j.Close()

			events, err := j.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	query.Flags().Int64Var(&filter.CartID, "cart", 0, "only events of this cart")
	query.Flags().StringVar(&action, "action", "", "only events with this action")
	query.Flags().IntVar(&filter.Limit, "limit", 100, "maximum number of events, 0 for all")
	cmd.AddCommand(query)

	return cmd
}
