// Package apply orchestrates one device session: reading and normalizing
// the running configuration, fingerprinting it, and pushing annotated diffs
// through the transmission protocol inside a transaction.
//
// A Session is strictly sequential. Separate devices get separate sessions
// and share nothing.
package apply
