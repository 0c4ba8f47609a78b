// Copyright 2023-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOauth2_Configure(t *testing.T) {
	var oa2a Oauth2Authenticator

	err := oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"username":      "user1",
		"password":      "Passw0rd!",
		"token_url":     "http://example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "user1", oa2a.Username)
	assert.Equal(t, "Passw0rd!", oa2a.Password)
	assert.Equal(t, "myclient", oa2a.ClientID)
	assert.Equal(t, "deadbeef", oa2a.ClientSecret)
	assert.Equal(t, "http://example.com", oa2a.TokenURL)

	err = oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"username":      "user1",
		"token_url":     "http://example.com",
	})
	assert.EqualError(t, err, "missing password")

	err = oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"token_url":     "http://example.com",
		"password":      "Passw0rd!",
	})
	assert.EqualError(t, err, "missing username")

	err = oa2a.Configure(map[string]interface{}{
		"client_id":     "myclient",
		"client_secret": "deadbeef",
		"username":      "user1",
		"password":      "Passw0rd!",
		"token_url":     "http://example.com",
		"full name":     "User One",
	})
	assert.EqualError(t, err, "unexpected fields in config: full name")
}

func TestOauth2_EncodeHeader(t *testing.T) {
	calls := 0
	h := func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.Form.Get("grant_type"))
		assert.Equal(t, "user1", r.Form.Get("username"))
		assert.Equal(t, "attest", r.Form.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	}
	srv := httptest.NewServer(http.HandlerFunc(h))
	defer srv.Close()

	oa2a := Oauth2Authenticator{
		TokenURL:     srv.URL,
		ClientID:     "myclient",
		ClientSecret: "deadbeef",
		Username:     "user1",
		Password:     "Passw0rd!",
		Scopes:       []string{"attest"},
		HTTPClient:   srv.Client(),
	}

	header, err := oa2a.EncodeHeader()
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", header)

	// cached until expiry
	_, err = oa2a.EncodeHeader()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
