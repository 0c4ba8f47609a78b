// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veraison/hostattest/verification"
)

type attestResult struct {
	Status       string `json:"status"`
	SessionToken string `json:"session_token,omitempty"`
	Signed       bool   `json:"signed"`
	EvidenceHash string `json:"evidence_hash,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func (a *app) attestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attest",
		Short: "Run one attestation exchange with the verifier",
		Long: `Collect evidence, obtain a challenge from the verifier, sign and submit.

The session token is printed on success. The command fails unless the
verifier attests the machine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch o := a.agent.Attest(cmd.Context()).(type) {
			case verification.Attested:
				return printJSON(cmd.OutOrStdout(), attestResult{
					Status:       verification.StatusAttested,
					SessionToken: o.SessionToken,
					Signed:       o.Signature.IsSigned(),
					EvidenceHash: o.Evidence.Hash(),
				})
			case verification.Rejected:
				if err := printJSON(cmd.OutOrStdout(), attestResult{Status: "rejected", Reason: o.Reason}); err != nil {
					return err
				}
				return fmt.Errorf("attestation rejected: %s", o.Reason)
			case verification.Failed:
				return o.Err
			default:
				return fmt.Errorf("unexpected outcome %T", o)
			}
		},
	}
}
