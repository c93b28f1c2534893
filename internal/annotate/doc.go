// Package annotate turns an orchestrator diff into the command sequence the
// device accepts.
//
// The diff arrives as a line buffer where some lines are preceded by
// annotation comments naming a device-specific policy. Each policy kind has
// one handler registered in a table keyed by domain.AnnotationKind; handlers
// may rewrite, split, move, inject or suppress lines and may read the live
// configuration through read-only datastore handles. Once every annotation is
// consumed, extended access lists are reconciled and text the normalizer
// quoted is unfolded back into the device's multi-line form.
package annotate
