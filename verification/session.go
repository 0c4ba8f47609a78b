// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/veraison/hostattest/capability"
	"github.com/veraison/hostattest/common"
	"github.com/veraison/hostattest/evidence"
	"github.com/veraison/hostattest/keystore"
)

// State is the position of a Session in the attestation exchange
type State int

const (
	StateIdle State = iota
	StateChallengeRequested
	StateSigned
	StateSubmitted
	StateAttested
	StateRejected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChallengeRequested:
		return "challenge-requested"
	case StateSigned:
		return "signed"
	case StateSubmitted:
		return "submitted"
	case StateAttested:
		return "attested"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further step is possible
func (s State) Terminal() bool {
	return s >= StateAttested
}

// Session is one attestation attempt. Steps must be called in order:
// RequestChallenge, Sign, Submit. Any failure is terminal; a new attempt
// needs a new Session. A Session is not safe for concurrent use.
type Session struct {
	uri          string
	client       common.Client
	capabilities capability.Source
	keys         keystore.Loader
	log          logrus.FieldLogger

	requestID string
	state     State
	challenge Challenge
	evidence  *evidence.Evidence
	signature Signature
	err       error
}

func (s *Session) State() State { return s.state }

// RequestID is the X-Request-ID sent with every request of this attempt
func (s *Session) RequestID() string { return s.requestID }

// Err returns the error that failed the session, if any
func (s *Session) Err() error { return s.err }

func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.err = err
	s.log.WithError(err).Debug("attestation attempt failed")
	return err
}

func (s *Session) expect(want State, step string) error {
	if s.state != want {
		return s.fail(fmt.Errorf("%w: %s in state %s", ErrInvalidState, step, s.state))
	}
	return nil
}

func (s *Session) headers() http.Header {
	return http.Header{"X-Request-ID": {s.requestID}}
}

// RequestChallenge asks the service for a fresh challenge on behalf of the
// machine identified by hint (NewMachineHint when empty).
func (s *Session) RequestChallenge(ctx context.Context, hint string) (Challenge, error) {
	if err := s.expect(StateIdle, "request challenge"); err != nil {
		return Challenge{}, err
	}

	if hint == "" {
		hint = NewMachineHint
	}

	res, err := s.client.PostJSON(ctx, s.uri, ChallengeRequest{
		Action:    ActionChallenge,
		MachineID: hint,
	}, s.headers())
	if err != nil {
		return Challenge{}, s.fail(fmt.Errorf("%w: %w", ErrChallenge, err))
	}

	if err := common.CheckResponse(res, http.StatusOK, http.StatusCreated); err != nil {
		return Challenge{}, s.fail(fmt.Errorf("%w: %w", ErrChallenge, err))
	}

	var ch Challenge
	if err := common.DecodeJSONBody(res, &ch); err != nil {
		return Challenge{}, s.fail(fmt.Errorf("%w: decoding response: %w", ErrChallenge, err))
	}

	if ch.Nonce == "" {
		return Challenge{}, s.fail(fmt.Errorf("%w: missing nonce", ErrChallenge))
	}

	if ch.ChallengeID == "" {
		return Challenge{}, s.fail(fmt.Errorf("%w: missing challenge_id", ErrChallenge))
	}

	s.challenge = ch
	s.state = StateChallengeRequested
	s.log.WithField("challenge_id", ch.ChallengeID).Debug("challenge received")

	return ch, nil
}

// Sign binds ev to the current challenge. At TierFull with a loadable key
// pair the payload is signed; otherwise the attestation proceeds unsigned.
func (s *Session) Sign(ev *evidence.Evidence) (Signature, error) {
	if err := s.expect(StateChallengeRequested, "sign"); err != nil {
		return Signature{}, err
	}

	if ev == nil {
		return Signature{}, s.fail(errors.New("no evidence supplied"))
	}

	sig, err := s.sign(ev)
	if err != nil {
		return Signature{}, s.fail(err)
	}

	if !sig.IsSigned() {
		s.log.WithField("challenge_id", s.challenge.ChallengeID).Warn("submitting unsigned attestation")
	}

	s.evidence = ev
	s.signature = sig
	s.state = StateSigned

	return sig, nil
}

func (s *Session) sign(ev *evidence.Evidence) (Signature, error) {
	if s.capabilities == nil {
		return Unsigned(), nil
	}

	p, err := s.capabilities.Provider()
	if err != nil {
		return Signature{}, err
	}

	if p.Tier() < capability.TierFull {
		s.log.WithField("tier", p.Tier()).Debug("tier cannot sign")
		return Unsigned(), nil
	}

	if s.keys == nil {
		s.log.Warn("no key store configured")
		return Unsigned(), nil
	}

	kp, err := s.keys.LoadKeyPair()
	if err != nil {
		s.log.WithError(err).Warn("loading attestation key pair")
		return Unsigned(), nil
	}

	raw, err := p.Sign(BuildPayload(s.challenge.Nonce, ev), kp.Private)
	if err != nil {
		return Signature{}, fmt.Errorf("signing payload: %w", err)
	}

	pub, err := kp.PublicDER()
	if err != nil {
		return Signature{}, fmt.Errorf("encoding public key: %w", err)
	}

	return Signed(raw, pub), nil
}

// Submit sends the signed attestation and interprets the verdict. The
// session ends in StateAttested, StateRejected or StateFailed.
func (s *Session) Submit(ctx context.Context) Outcome {
	if err := s.expect(StateSigned, "submit"); err != nil {
		return Failed{Err: err}
	}

	s.state = StateSubmitted

	req := newAttestationRequest(s.challenge, s.evidence, s.signature)

	res, err := s.client.PostJSON(ctx, s.uri, req, s.headers())
	if err != nil {
		return Failed{Err: s.fail(fmt.Errorf("%w: %w", ErrTransport, err))}
	}

	if err := common.CheckResponse(res, http.StatusOK, http.StatusCreated); err != nil {
		return Failed{Err: s.fail(fmt.Errorf("%w: %w", ErrTransport, err))}
	}

	var verdict AttestationResponse
	if err := common.DecodeJSONBody(res, &verdict); err != nil {
		return Failed{Err: s.fail(fmt.Errorf("%w: decoding verdict: %w", ErrProtocol, err))}
	}

	return s.interpret(verdict)
}

func (s *Session) interpret(v AttestationResponse) Outcome {
	log := s.log.WithField("challenge_id", s.challenge.ChallengeID)

	switch v.Status {
	case "":
		return Failed{Err: s.fail(fmt.Errorf("%w: missing status", ErrProtocol))}
	case StatusAttested:
		if v.SessionToken == "" {
			return Failed{Err: s.fail(fmt.Errorf("%w: attested without session token", ErrProtocol))}
		}
		s.state = StateAttested
		log.WithField("signed", s.signature.IsSigned()).Info("machine attested")
		return Attested{
			SessionToken: v.SessionToken,
			Evidence:     s.evidence,
			Signature:    s.signature,
		}
	default:
		s.state = StateRejected
		log.WithField("reason", v.Status).Warn("attestation rejected")
		return Rejected{Reason: v.Status}
	}
}

func newSession(
	uri string,
	client common.Client,
	caps capability.Source,
	keys keystore.Loader,
	log logrus.FieldLogger,
) *Session {
	id := uuid.NewString()
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		uri:          uri,
		client:       client,
		capabilities: caps,
		keys:         keys,
		log:          log.WithField("request_id", id),
		requestID:    id,
	}
}
