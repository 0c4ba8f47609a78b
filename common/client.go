// Copyright 2021-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/veraison/hostattest/auth"
)

// DefaultTimeout bounds each transport call made through a Client
const DefaultTimeout = 5 * time.Second

// Client holds configuration data associated with the HTTP(s) session
type Client struct {
	HTTPClient http.Client
	Auth       auth.IAuthenticator // optional, no credential header when nil
}

// NewClient instantiates a new Client
func NewClient(a auth.IAuthenticator) *Client {
	return &Client{
		HTTPClient: http.Client{
			Timeout: DefaultTimeout,
		},
		Auth: a,
	}
}

// PostResource POSTs body to uri. Headers in hdr are added on top of
// Content-Type, Accept and the credential header.
func (c Client) PostResource(
	ctx context.Context,
	body []byte,
	ct, accept, uri string,
	hdr http.Header,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("POST %q, request creation failed: %w", uri, err)
	}

	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", accept)

	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if c.Auth != nil {
		h, err := c.Auth.EncodeHeader()
		if err != nil {
			return nil, fmt.Errorf("POST %q, credential header: %w", uri, err)
		}
		if h != "" {
			req.Header.Set("Authorization", h)
		}
	}

	hc := &c.HTTPClient

	res, err := hc.Do(req)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// PostJSON marshals v and POSTs it as application/json
func (c Client) PostJSON(ctx context.Context, uri string, v any, hdr http.Header) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("POST %q, encoding body: %w", uri, err)
	}

	return c.PostResource(ctx, body, MediaTypeJSON, MediaTypeJSON, uri, hdr)
}
