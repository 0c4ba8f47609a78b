// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/veraison/hostattest"
	"github.com/veraison/hostattest/config"
)

// Version is set at build time
var Version = "0.1.0"

// app carries the state shared by all subcommands
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	log   *logrus.Logger
	agent *hostattest.Agent
}

func newRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}

	root := &cobra.Command{
		Use:   "hostattest",
		Short: "Remote attestation and runtime integrity agent",
		Long: `hostattest proves to a remote verification service that this machine
runs an unmodified stack, and re-measures the kernel image and tracked files
at run time.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.agent != nil {
				_ = a.agent.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", config.DefaultPath, "configuration file")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(
		a.attestCmd(),
		a.verifyCmd(),
		a.evidenceCmd(),
		a.tierCmd(),
		a.keygenCmd(),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	a.log.SetOutput(cmd.ErrOrStderr())

	level, err := logrus.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	a.log.SetLevel(level)

	switch a.logFormat {
	case "text":
		a.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		a.log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", a.logFormat)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		// the default location is optional, an explicit one is not
		if !errors.Is(err, os.ErrNotExist) || cmd.Flags().Changed("config") {
			return err
		}
		a.log.WithField("path", a.configPath).Debug("no configuration file, using defaults")
		cfg = config.Default()
	}

	a.agent, err = hostattest.NewAgent(cfg, a.log)
	return err
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
