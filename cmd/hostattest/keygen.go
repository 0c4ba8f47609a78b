// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veraison/hostattest/capability"
)

func (a *app) keygenCmd() *cobra.Command {
	var (
		bits  int
		force bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the attestation key pair",
		Long: `Generate the attestation key pair on the bound device and store it at the
configured key paths. Requires the full capability tier.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.agent.GenerateKeys(bits, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "private key: %s\npublic key: %s\n",
				a.agent.Keys.PrivatePath, a.agent.Keys.PublicPath)
			return err
		},
	}

	cmd.Flags().IntVar(&bits, "bits", capability.MinRSABits, "RSA modulus size")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing key pair")

	return cmd
}
