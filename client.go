// Copyright 2021-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package hostattest

import (
	"fmt"

	"github.com/veraison/hostattest/auth"
	"github.com/veraison/hostattest/common"
	"github.com/veraison/hostattest/config"
)

// NewClient instantiates the HTTP(s) client described by cfg: credential
// scheme, extra trust anchors and timeout.
func NewClient(cfg *config.Config) (*common.Client, error) {
	a, err := auth.New(cfg.Auth.Method, cfg.Auth.Params)
	if err != nil {
		return nil, err
	}

	client := common.NewClient(a)
	client.HTTPClient.Timeout = cfg.Timeout

	if len(cfg.CACerts) > 0 {
		tr, err := auth.NewTLSTransport(cfg.CACerts)
		if err != nil {
			return nil, fmt.Errorf("TLS transport: %w", err)
		}
		client.HTTPClient.Transport = tr
	}

	// the token endpoint is reached with the same trust anchors
	if oa, ok := a.(*auth.Oauth2Authenticator); ok {
		oa.HTTPClient = &client.HTTPClient
	}

	return client, nil
}
