// Copyright 2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package integrity re-measures the running kernel image and the files listed
// in a manifest, and reports drift from the values established at boot.
package integrity

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/sirupsen/logrus"
	"github.com/veraison/hostattest/bootstate"
	"github.com/veraison/hostattest/capability"
)

const DefaultKernelImagePath = "/boot/vmlinuz"

// ManifestState says how much the manifest part of a check can be trusted
type ManifestState string

const (
	// ManifestVerified: the signature checked out against the keyring
	ManifestVerified ManifestState = "verified"
	// ManifestUnverified: no keyring configured, entries used as found
	ManifestUnverified ManifestState = "unverified"
	// ManifestUntrusted: bad or missing signature, entries ignored
	ManifestUntrusted ManifestState = "untrusted"
	// ManifestUnavailable: unreadable or unparseable, entries ignored
	ManifestUnavailable ManifestState = "unavailable"
)

// FileModified is the per-file status of every drifted entry, whether its
// content changed or it can no longer be read
const FileModified = "modified"

// Report is the outcome of one check
type Report struct {
	KernelModified bool              `json:"kernel_modified"`
	FilesModified  int               `json:"files_modified"`
	PerFileStatus  map[string]string `json:"per_file_status"`
	Manifest       ManifestState     `json:"manifest"`
	CheckedAt      time.Time         `json:"checked_at"`
}

// Clean reports whether no drift was found
func (r *Report) Clean() bool {
	return !r.KernelModified && r.FilesModified == 0
}

// Verifier performs point-in-time integrity checks. Tampering that was
// reverted between two checks goes unnoticed.
type Verifier struct {
	Capabilities    capability.Source
	Facts           bootstate.Source // boot-time kernel hash
	KernelImagePath string
	ManifestPath    string             // optional, kernel-only check when empty
	Keyring         openpgp.EntityList // optional, manifest signature is not checked when empty
	Now             func() time.Time
	Logger          logrus.FieldLogger
}

func (v Verifier) logger() logrus.FieldLogger {
	if v.Logger == nil {
		return logrus.StandardLogger()
	}
	return v.Logger
}

// Verify measures the kernel image and every manifest entry. It fails only
// when no cryptographic device is available or ctx ends; every other problem
// is reflected in the report.
func (v Verifier) Verify(ctx context.Context) (bool, *Report, error) {
	if v.Capabilities == nil {
		return false, nil, capability.ErrNoHardware
	}
	p, err := v.Capabilities.Provider()
	if err != nil {
		return false, nil, err
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	r := &Report{
		PerFileStatus: map[string]string{},
		CheckedAt:     now().UTC(),
	}

	if r.KernelModified, err = v.kernelModified(p); err != nil {
		return false, nil, err
	}

	var entries []Entry
	r.Manifest, entries = v.loadManifest()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return false, nil, err
		}

		status, err := checkFile(p, e, v.logger())
		if err != nil {
			return false, nil, err
		}
		if status != "" {
			r.PerFileStatus[e.Path] = status
			r.FilesModified++
		}
	}

	v.logger().WithFields(logrus.Fields{
		"kernel_modified": r.KernelModified,
		"files_modified":  r.FilesModified,
		"manifest":        r.Manifest,
	}).Debug("integrity check done")

	return r.Clean(), r, nil
}

// kernelModified compares the encoded digest of the kernel image with the
// boot-time kernel hash. No baseline, or no readable image, counts as
// modified.
func (v Verifier) kernelModified(p *capability.Provider) (bool, error) {
	log := v.logger()

	var baseline *string
	if v.Facts != nil {
		facts, err := v.Facts.Facts()
		if err != nil {
			log.WithError(err).Warn("reading boot facts")
		} else {
			baseline = facts.KernelHash
		}
	}
	if baseline == nil {
		log.Warn("no boot-time kernel hash, treating kernel as modified")
		return true, nil
	}

	path := v.KernelImagePath
	if path == "" {
		path = DefaultKernelImagePath
	}

	image, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("reading kernel image, treating kernel as modified")
		return true, nil
	}

	got, err := p.HashEncoded(image)
	if err != nil {
		return false, fmt.Errorf("hashing kernel image: %w", err)
	}

	return got != *baseline, nil
}

func (v Verifier) loadManifest() (ManifestState, []Entry) {
	log := v.logger()

	if v.ManifestPath == "" {
		return ManifestUnavailable, nil
	}

	doc, err := os.ReadFile(v.ManifestPath)
	if err != nil {
		log.WithError(err).Warn("reading manifest, kernel-only check")
		return ManifestUnavailable, nil
	}

	m, err := ParseManifest(doc)
	if err != nil {
		log.WithError(err).Warn("parsing manifest, kernel-only check")
		return ManifestUnavailable, nil
	}

	if len(v.Keyring) == 0 {
		return ManifestUnverified, m.Entries
	}

	signer, err := m.CheckSignature(v.Keyring)
	if err != nil {
		log.WithError(err).Warn("untrusted manifest, kernel-only check")
		return ManifestUntrusted, nil
	}

	log.WithField("signer", fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint)).Debug("manifest signature verified")

	return ManifestVerified, m.Entries
}

// checkFile returns "" when the file matches, FileModified otherwise
func checkFile(p *capability.Provider, e Entry, log logrus.FieldLogger) (string, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		log.WithError(err).WithField("path", e.Path).Warn("tracked file missing or unreadable")
		return FileModified, nil
	}

	got, err := p.HashEncoded(data)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", e.Path, err)
	}

	if got != e.ExpectedHash {
		return FileModified, nil
	}
	return "", nil
}
