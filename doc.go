// Copyright 2021-2026 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

/*
Package hostattest lets a machine prove to a remote verification service that
it runs an unmodified stack, and re-measures that stack at run time.

An Agent is built from a configuration file:

	cfg, err := config.Load(config.DefaultPath)
	agent, err := hostattest.NewAgent(cfg, logrus.StandardLogger())
	defer agent.Close()

The first operation that needs cryptography probes the configured devices
(a TPM 2.0 character device and the host crypto module) and binds the one
offering the highest tier. The bound tier decides what is available:

	none      nothing, every operation fails with capability.ErrNoHardware
	basic     hashing and encoding
	standard  + random bytes from the device
	full      + signing and key generation

Attestation

	switch o := agent.Attest(ctx).(type) {
	case verification.Attested:
		fmt.Println(o.SessionToken)
	case verification.Rejected:
		fmt.Println("rejected:", o.Reason)
	case verification.Failed:
		return o.Err
	}

Below the full tier, or without a key pair, the attestation is submitted
unsigned; Attested.Signature.IsSigned tells the two apart.

Runtime integrity

	clean, report, err := agent.CheckIntegrity(ctx)

compares the kernel image and the files of the manifest with the values
recorded at boot. Monitor repeats the check periodically.
*/
package hostattest
