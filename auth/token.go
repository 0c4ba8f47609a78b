// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// TokenAuthenticator presents a static API token as a bearer credential. The
// token is either given inline or read from TokenFile on every use, so that
// a rotated token is picked up without a restart.
type TokenAuthenticator struct {
	Token     string
	TokenFile string
}

func (o *TokenAuthenticator) Configure(cfg map[string]interface{}) error {
	decoded := struct {
		Token     string                 `mapstructure:"token"`
		TokenFile string                 `mapstructure:"token_file"`
		Rest      map[string]interface{} `mapstructure:",remain"`
	}{}

	if err := mapstructure.Decode(cfg, &decoded); err != nil {
		return err
	}

	o.Token = decoded.Token
	o.TokenFile = decoded.TokenFile

	if err := o.validate(); err != nil {
		return err
	}

	return checkUnexpected(decoded.Rest)
}

func (o *TokenAuthenticator) EncodeHeader() (string, error) {
	if err := o.validate(); err != nil {
		return "", err
	}

	token := o.Token
	if token == "" {
		raw, err := os.ReadFile(o.TokenFile)
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		token = strings.TrimSpace(string(raw))
		if token == "" {
			return "", fmt.Errorf("empty token in %s", o.TokenFile)
		}
	}

	return fmt.Sprintf("Bearer %s", token), nil
}

func (o *TokenAuthenticator) validate() error {
	if o.Token == "" && o.TokenFile == "" {
		return errors.New("missing token or token_file")
	}

	if o.Token != "" && o.TokenFile != "" {
		return errors.New("only one of token or token_file must be specified")
	}

	return nil
}
