// Copyright 2023-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/moogar0880/problems"
)

type ProblemError struct {
	problems.DefaultProblem
}

func (o *ProblemError) Error() string {
	return fmt.Sprintf("%d %s: %s", o.ProblemStatus(), o.ProblemTitle(), o.Detail)
}

// CheckResponse returns nil if the response status is one of expected.
// Otherwise the body is decoded as a *ProblemError when it carries problem
// details, or a generic error describing the status is returned.
func CheckResponse(res *http.Response, expected ...int) error {
	for _, exp := range expected {
		if res.StatusCode == exp {
			return nil
		}
	}

	mt, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))
	if mt == problems.ProblemMediaType {
		var prob ProblemError

		if err := DecodeJSONBody(res, &prob.DefaultProblem); err != nil {
			return fmt.Errorf(
				"could not decode problem response (status %d): %w",
				res.StatusCode,
				err,
			)
		}

		return &prob
	}

	res.Body.Close()

	return fmt.Errorf("unexpected HTTP response code %d", res.StatusCode)
}
