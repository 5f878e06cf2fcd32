// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeitlabs/payfort/internal/changelog"
)

var errChangelogInvalid = errors.New("changelog has errors")

func changelogCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Validate and release the version history",
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "CHANGELOG.md", "changelog path")

	cmd.AddCommand(&cobra.Command{
		Use:   "lint",
		Short: "Report changelog problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := changelog.Load(file)
			if err != nil {
				return err
			}
			issues := changelog.Validate(c)
			for _, is := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d: %s: %s\n", file, is.Line, is.Severity, is.Message)
			}
			if changelog.HasErrors(issues) {
				return errChangelogInvalid
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "Print the newest released version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := changelog.Load(file)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Latest())
			return nil
		},
	})

	var date string
	release := &cobra.Command{
		Use:   "release VERSION",
		Short: "Move the Unreleased entries into a dated release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when := time.Now()
			if date != "" {
				parsed, err := time.Parse(changelog.DateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				when = parsed
			}

			c, err := changelog.Load(file)
			if err != nil {
				return err
			}
			if err := c.Release(args[0], when); err != nil {
				return err
			}
			if issues := changelog.Validate(c); changelog.HasErrors(issues) {
				for _, is := range issues {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d: %s: %s\n", file, is.Line, is.Severity, is.Message)
				}
				return errChangelogInvalid
			}
			if err := changelog.WriteFile(file, c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "released %s on %s\n", args[0], when.Format(changelog.DateLayout))
			return nil
		},
	}
	release.Flags().StringVar(&date, "date", "", "release date (YYYY-MM-DD), defaults to today")
	cmd.AddCommand(release)

	return cmd
}
