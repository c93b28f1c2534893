// Package secrets detects, obscures and reveals credential-bearing config lines.
//
// Devices display passwords in an encoded form (type 5/8/9 hashes, type 7
// reversible encoding) while the orchestrator stores the cleartext it sent.
// The Codec learns the pairing after each commit and substitutes the
// cleartext back into show output for as long as the device still displays
// the same encoded value. A changed encoded value means the secret was
// modified out of band and is passed through untouched.
package secrets
