// Copyright 2023 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package auth provides the credential header schemes used towards the
// verification service.
package auth

// IAuthenticator produces the value of the Authorization header sent with
// every request to the verification service. An empty value means no header.
type IAuthenticator interface {
	Configure(cfg map[string]interface{}) error
	EncodeHeader() (string, error)
}
