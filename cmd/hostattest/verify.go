// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/veraison/hostattest/integrity"
)

var errDrift = errors.New("integrity drift detected")

func (a *app) verifyCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the kernel image and tracked files against their boot-time values",
		Long: `Check the kernel image and the files listed in the integrity manifest.

With --watch the check is repeated every monitor_interval until interrupted,
and each report is printed as it is produced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if !watch {
				clean, r, err := a.agent.CheckIntegrity(cmd.Context())
				if err != nil {
					return err
				}
				if err := printJSON(out, r); err != nil {
					return err
				}
				if !clean {
					return errDrift
				}
				return nil
			}

			return a.agent.Monitor(cmd.Context(), func(clean bool, r *integrity.Report, err error) {
				if err != nil {
					a.log.WithError(err).Error("integrity check failed")
					return
				}
				if !clean {
					a.log.WithFields(logrus.Fields{
						"kernel_modified": r.KernelModified,
						"files_modified":  r.FilesModified,
					}).Warn(errDrift.Error())
				}
				if err := printJSON(out, r); err != nil {
					a.log.WithError(err).Error("writing report")
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "check periodically until interrupted")

	return cmd
}
