// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) evidenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evidence",
		Short: "Print the evidence that would be submitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := a.agent.Evidence()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ev)
		},
	}
}

func (a *app) tierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tier",
		Short: "Bind a cryptographic device and print its capability tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, device, err := a.agent.Tier()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", tier, device)
			return err
		},
	}
}
