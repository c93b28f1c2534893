// Package repository defines the operational cache used by the device adapter.
//
// The oper cache is a small per-device key/value store keyed by structural
// path. It is owned outside the configuration datastore and holds state the
// adapter must remember between transactions:
//
// - secrets/...   cleartext and device encoding pairs learned after commit
// - defaults/...  default-value lines injected at show time
// - inventory/... version facts gathered by the inventory scanner
//
// # Implementations
//
// Memory is an in-process cache used by tests and one-shot commands. The
// sqlite subpackage persists entries with modernc.org/sqlite in WAL mode.
package repository
