// Copyright 2021-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/veraison/hostattest/auth"
	"github.com/veraison/hostattest/capability"
	"github.com/veraison/hostattest/common"
	"github.com/veraison/hostattest/evidence"
	"github.com/veraison/hostattest/keystore"
)

// EvidenceCollector supplies the evidence to attest. evidence.Collector
// implements it.
type EvidenceCollector interface {
	Collect() (*evidence.Evidence, error)
}

// ChallengeResponseConfig holds the configuration for one or more
// attestation attempts
type ChallengeResponseConfig struct {
	EndpointURI   string              // URI of the attestation endpoint
	Client        *common.Client      // HTTP(s) client connection configuration
	Authenticator auth.IAuthenticator // overrides Client.Auth when set
	Capabilities  capability.Source   // signing
	Keys          keystore.Loader     // attestation key pair, optional
	Collector     EvidenceCollector   // evidence source, needed by Run only
	Logger        logrus.FieldLogger
}

// SetEndpointURI sets the attestation endpoint URI supplied by the user
func (cfg *ChallengeResponseConfig) SetEndpointURI(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("malformed endpoint URI: %w", err)
	}
	if !u.IsAbs() {
		return errors.New("the supplied endpoint URI is not in absolute form")
	}
	cfg.EndpointURI = uri
	return nil
}

// SetClient sets the HTTP(s) client connection configuration
func (cfg *ChallengeResponseConfig) SetClient(client *common.Client) error {
	if client == nil {
		return errors.New("no client supplied")
	}
	cfg.Client = client
	return nil
}

// SetAuthenticator sets the source of the credential header
func (cfg *ChallengeResponseConfig) SetAuthenticator(a auth.IAuthenticator) error {
	if a == nil {
		return errors.New("no authenticator supplied")
	}
	cfg.Authenticator = a
	return nil
}

// SetCapabilities sets the capability source used for signing
func (cfg *ChallengeResponseConfig) SetCapabilities(src capability.Source) error {
	if src == nil {
		return errors.New("no capability source supplied")
	}
	cfg.Capabilities = src
	return nil
}

// SetKeys sets the attestation key pair loader
func (cfg *ChallengeResponseConfig) SetKeys(keys keystore.Loader) error {
	if keys == nil {
		return errors.New("no key loader supplied")
	}
	cfg.Keys = keys
	return nil
}

// SetCollector sets the evidence source used by Run
func (cfg *ChallengeResponseConfig) SetCollector(c EvidenceCollector) error {
	if c == nil {
		return errors.New("no evidence collector supplied")
	}
	cfg.Collector = c
	return nil
}

// NewSession returns a fresh Session for driving an attempt step by step
func (cfg ChallengeResponseConfig) NewSession() (*Session, error) {
	if err := cfg.check(false); err != nil {
		return nil, err
	}

	// Attach the default client if the user hasn't supplied one
	var client common.Client
	if cfg.Client != nil {
		client = *cfg.Client
	} else {
		client = *common.NewClient(nil)
	}

	if cfg.Authenticator != nil {
		client.Auth = cfg.Authenticator
	}

	return newSession(cfg.EndpointURI, client, cfg.Capabilities, cfg.Keys, cfg.Logger), nil
}

// Run drives one fresh attempt end to end: collect evidence, request a
// challenge using the machine binding as identity hint, sign and submit.
// Failures are reported as Failed; a negative verdict as Rejected.
func (cfg ChallengeResponseConfig) Run(ctx context.Context) Outcome {
	if err := cfg.check(true); err != nil {
		return Failed{Err: err}
	}

	ev, err := cfg.Collector.Collect()
	if err != nil {
		return Failed{Err: fmt.Errorf("evidence collection failed: %w", err)}
	}
	if ev == nil {
		return Failed{Err: errors.New("no evidence collected")}
	}

	s, err := cfg.NewSession()
	if err != nil {
		return Failed{Err: err}
	}

	hint, _ := ev.MachineBinding()

	if _, err := s.RequestChallenge(ctx, hint); err != nil {
		return Failed{Err: err}
	}

	if _, err := s.Sign(ev); err != nil {
		return Failed{Err: err}
	}

	return s.Submit(ctx)
}

// check makes sure that the config object is in good shape
func (cfg ChallengeResponseConfig) check(atomicRun bool) error {
	if cfg.EndpointURI == "" {
		return errors.New("bad configuration: no API endpoint")
	}

	if atomicRun && cfg.Collector == nil {
		return errors.New("bad configuration: the evidence collector is missing")
	}

	// It's OK if we don't have a client at this point in time; if needed we
	// will instantiate the default one later.

	return nil
}
