// Copyright 2021-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

/*
Package verification implements the client side of the attestation
challenge-response exchange.

Challenge-Response, atomic operation

Using this mode of operation the whole exchange is handled through a single
invocation of the Run() method:

	cfg := ChallengeResponseConfig{
		EndpointURI:   "https://verifier.example/api/attest",
		Authenticator: &auth.TokenAuthenticator{Token: apiToken},
		Capabilities:  handle,
		Keys:          keystore.NewFileStore(),
		Collector:     evidence.Collector{Capabilities: handle, ...},
	}

	switch o := cfg.Run(ctx).(type) {
	case Attested:
		useToken(o.SessionToken)
	case Rejected:
		log.Printf("verifier said %s", o.Reason)
	case Failed:
		log.Printf("attempt failed: %v", o.Err)
	}

Attested.Signature tells whether the service accepted an unsigned
attestation (machines below the full capability tier, or without a key pair,
submit the literal "UNSIGNED" in place of a signature).

Challenge-Response, split operation

The caller drives each step of a Session:

	s, err := cfg.NewSession()
	ch, err := s.RequestChallenge(ctx, "MACH-1")
	sig, err := s.Sign(ev)
	outcome := s.Submit(ctx)

Steps called out of order fail with ErrInvalidState. Any failure is terminal
for the Session; retrying means starting a new one, which also gets a new
challenge. The nonce freshness window is enforced by the service only.
*/
package verification
