// Copyright 2023-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/oauth2"
)

// Oauth2Authenticator obtains a bearer token with the resource owner password
// grant and refreshes it once expired.
type Oauth2Authenticator struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Scopes       []string

	// HTTPClient is used to reach the token endpoint, http.DefaultClient
	// when nil
	HTTPClient *http.Client

	mu    sync.Mutex
	Token *oauth2.Token
}

func (o *Oauth2Authenticator) Configure(cfg map[string]interface{}) error {
	decoded := struct {
		TokenURL     string                 `mapstructure:"token_url" valid:"url"`
		ClientID     string                 `mapstructure:"client_id"`
		ClientSecret string                 `mapstructure:"client_secret"`
		Username     string                 `mapstructure:"username"`
		Password     string                 `mapstructure:"password"`
		Scopes       []string               `mapstructure:"scopes"`
		Rest         map[string]interface{} `mapstructure:",remain"`
	}{}

	if err := mapstructure.Decode(cfg, &decoded); err != nil {
		return err
	}

	o.ClientID = decoded.ClientID
	o.ClientSecret = decoded.ClientSecret
	o.TokenURL = decoded.TokenURL
	o.Username = decoded.Username
	o.Password = decoded.Password
	o.Scopes = decoded.Scopes

	if err := o.validate(); err != nil {
		return err
	}

	return checkUnexpected(decoded.Rest)
}

func (o *Oauth2Authenticator) EncodeHeader() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Token.Valid() {
		token, err := o.obtainToken()
		if err != nil {
			return "", err
		}
		o.Token = token
	}

	header := fmt.Sprintf("Bearer %s", o.Token.AccessToken)

	return header, nil
}

func (o *Oauth2Authenticator) obtainToken() (*oauth2.Token, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	scopes := o.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}

	ctx := context.Background()
	if o.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
	}

	conf := &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL: o.TokenURL,
		},
	}

	token, err := conf.PasswordCredentialsToken(ctx, o.Username, o.Password)
	if err != nil {
		return nil, fmt.Errorf("obtaining oauth2 token: %w", err)
	}

	return token, nil
}

func (o *Oauth2Authenticator) validate() error {
	if o.ClientID == "" {
		return errors.New("missing client_id")
	}

	if o.ClientSecret == "" {
		return errors.New("missing client_secret")
	}

	if o.TokenURL == "" {
		return errors.New("missing token_url")
	}

	if _, err := url.Parse(o.TokenURL); err != nil {
		return fmt.Errorf("invalid token_url: %w", err)
	}

	if o.Username == "" {
		return errors.New("missing username")
	}

	if o.Password == "" {
		return errors.New("missing password")
	}

	return nil
}
