// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package main

import "github.com/spf13/cobra"

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("ifa %s\ncommit: %s\nbuilt:  %s\n", version, commit, date)
		},
	}
}
