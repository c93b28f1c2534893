// Package transmit sends configuration lines to an IOS device one at a time
// over an interactive CLI session. Each line is echoed, then the prompt that
// follows is awaited and the text in between is classified as accepted,
// harmless warning, transiently busy (retried) or rejected. Interactive
// questions are answered, dropping out of config mode is always fatal, and
// runs of bulk-tolerant lines may be pushed in chunks.
package transmit
