// SPDX-License-Identifier: MIT

// Command payfortctl is the operator tool for the gateway: changelog
// maintenance, signature debugging, store checks and audit queries.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zeitlabs/payfort/internal/config"
	xglog "github.com/zeitlabs/payfort/internal/log"
	"github.com/zeitlabs/payfort/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "payfortctl",
		Short:         "Operate the PayFort gateway",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			xglog.Configure(xglog.Config{Level: "warn", Output: cmd.ErrOrStderr(), Service: "payfortctl"})
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	// Subcommands only need the parts of the configuration they touch, so
	// the full daemon validation is not applied here.
	load := func() (config.AppConfig, error) {
		return config.NewLoader(configPath, version.Version).Load()
	}

	root.AddCommand(changelogCmd())
	root.AddCommand(signCmd(load))
	root.AddCommand(verifyCmd(load))
	root.AddCommand(dbCmd(load))
	root.AddCommand(auditCmd(load))
	return root
}
