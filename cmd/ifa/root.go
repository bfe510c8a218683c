// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/ifa-app/ifa/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the ifa CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "ifa",
		Short: "ifa - account registration and authentication service",
		Long: `ifa stores user accounts with bcrypt-hashed passwords and serves
registration, login, profile and password management over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/ifa/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewAccountCmd(deps))
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadConfig reads the configuration for cmd, honoring --config and every
// flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	//nolint:wrapcheck // config errors already carry codes
	return config.Load(config.LoadOptions{
		Path:  configFile,
		Flags: cmd.Flags(),
	})
}
