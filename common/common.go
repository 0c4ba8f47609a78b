// Copyright 2021-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// TODO(tho) make these two configurable
const (
	ReadYield     = 10 * time.Millisecond
	MaxEmptyReads = 50
)

const MediaTypeJSON = "application/json"

// DecodeJSONBody decodes the response body into j and closes it. The body is
// read through a PollingReader bound to the request context.
func DecodeJSONBody(res *http.Response, j interface{}) error {
	defer res.Body.Close()

	ctx := context.Background()
	if res.Request != nil {
		ctx = res.Request.Context()
	}

	return json.NewDecoder(NewPollingReader(ctx, res.Body)).Decode(j)
}
