// Package domain defines the core types shared by the iosctl configuration pipeline.
//
// This package contains the value objects that every stage of the adapter
// passes between itself: configuration lines, buffers, annotations, reply
// classes and the error taxonomy.
//
// # Core Types
//
// Line is one indented command line. Its Parent and Top fields are derived
// from the block structure of the enclosing Buffer and are refreshed with
// Buffer.Reindex after any structural edit.
//
// Buffer is an ordered sequence of lines. ParseBuffer attaches annotation
// comments ("! meta-data :: path :: tag :: values") to the command line that
// follows them.
//
// ScopeStack tracks the open configuration modes while walking a buffer.
//
// # Annotations
//
// Annotation names a device-specific transformation policy. KindOf resolves
// tags (including their "-mode", "-withkey" and numbered variants) to an
// AnnotationKind.
//
// # Errors
//
// ProtocolTimeoutError, DeviceRejectedError, AnnotationMalformedError,
// ReconcileInconsistencyError, ModeExitUnexpectedError and
// SupplementaryQueryUnsupportedError each match a sentinel through errors.Is.
//
// # Design Principles
//
// - No database or transport dependencies
// - Buffers are mutated in place by the pipeline stages, never shared across goroutines
package domain
