// Package normalize turns raw "show running-config" output into the
// canonical line stream the orchestrator diffs against.
//
// The pipeline runs in a fixed order:
//
//  1. Trim strips banners, trailing "end" and console noise
//  2. supplementary queries synthesize lines the dump does not show
//  3. QuoteTexts folds multi-line bodies (banners, macros, certificates)
//     into single quoted lines
//  4. the input rule tables rewrite device spellings into model spellings
//  5. late queries, secrets restore and default-value injection
//
// Each supplementary query is gated by a capability bit. A device that
// rejects a query loses the bit for the rest of the session and the query is
// never sent again.
package normalize
