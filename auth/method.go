// Copyright 2023-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"fmt"
	"sort"
	"strings"
)

// Method is the enumeration of credential schemes accepted by the
// verification service. It implements the pflag.Value interface.
type Method string

const (
	MethodPassthrough Method = "passthrough"
	MethodToken       Method = "token"
	MethodOauth2      Method = "oauth2"
)

// String representation of the Method
func (o *Method) String() string {
	return string(*o)
}

// Set the value of the Method
func (o *Method) Set(v string) error {
	switch v {
	case "none", "passthrough":
		*o = MethodPassthrough
	case "token":
		*o = MethodToken
	case "oauth2":
		*o = MethodOauth2
	default:
		return fmt.Errorf("unexpected Method %q", v)
	}

	return nil
}

// Type returns the string representing the type name (used by pflag).
func (o *Method) Type() string {
	return "Method"
}

// New returns an authenticator for the named method, configured from cfg.
// An empty method name selects passthrough.
func New(method string, cfg map[string]interface{}) (IAuthenticator, error) {
	var (
		m Method = MethodPassthrough
		a IAuthenticator
	)

	if method != "" {
		if err := m.Set(method); err != nil {
			return nil, err
		}
	}

	switch m {
	case MethodToken:
		a = &TokenAuthenticator{}
	case MethodOauth2:
		a = &Oauth2Authenticator{}
	default:
		a = &NullAuthenticator{}
	}

	if err := a.Configure(cfg); err != nil {
		return nil, fmt.Errorf("%s authentication: %w", m, err)
	}

	return a, nil
}

func checkUnexpected(rest map[string]interface{}) error {
	if len(rest) == 0 {
		return nil
	}

	var unexpected []string
	for k := range rest {
		unexpected = append(unexpected, k)
	}
	sort.Strings(unexpected)

	return fmt.Errorf("unexpected fields in config: %s",
		strings.Join(unexpected, ", "))
}
