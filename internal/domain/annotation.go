package domain

import (
	"strings"
)

// AnnotationPrefix starts every annotation comment line
const AnnotationPrefix = "! meta-data :: "

const annotationSep = " :: "

// Annotation is an orchestrator-attached directive naming a device-specific
// transformation policy for the line that follows it
type Annotation struct {
	Path   string   // structural path of the annotated node
	Tag    string   // policy name
	Values []string // policy arguments
	Raw    string   // the comment line as received
}

// Kind resolves the annotation tag to its kind
func (a Annotation) Kind() AnnotationKind {
	return KindOf(a.Tag)
}

// Value returns the i'th argument or "" when absent
func (a Annotation) Value(i int) string {
	if i < 0 || i >= len(a.Values) {
		return ""
	}
	return a.Values[i]
}

// Key identifies identical annotations (same path, tag and values)
func (a Annotation) Key() string {
	return a.Path + annotationSep + a.Tag + annotationSep + strings.Join(a.Values, annotationSep)
}

// String renders the annotation comment line
func (a Annotation) String() string {
	parts := append([]string{"! meta-data", a.Path, a.Tag}, a.Values...)
	return strings.Join(parts, annotationSep)
}

// IsAnnotationLine reports whether raw is an annotation comment
func IsAnnotationLine(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), AnnotationPrefix)
}

// ParseAnnotation parses "! meta-data :: <path> :: <tag> :: v1 :: v2 ..."
func ParseAnnotation(raw string) (Annotation, error) {
	trimmed := strings.TrimSpace(raw)
	parts := strings.Split(trimmed, annotationSep)
	if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
		return Annotation{}, &AnnotationMalformedError{Annotation: trimmed, Reason: "missing path or tag"}
	}
	return Annotation{
		Path:   parts[1],
		Tag:    strings.TrimSpace(parts[2]),
		Values: parts[3:],
		Raw:    trimmed,
	}, nil
}

// AnnotationKind enumerates the transformation policies understood by the interpreter
type AnnotationKind int

const (
	KindUnknown AnnotationKind = iota
	KindReorder
	KindMaxValues
	KindSplitLongLine
	KindReplaceList
	KindInject
	KindDeleteSyntax
	KindDeleteWithDefault
	KindBooleanDeleteWithDefault
	KindTrimWhenListDeleted
	KindTrimEmptyCreate
	KindTrimDeleteWhenEmpty
	KindLowerThan
	KindHigherThan
	KindStringAddQuotes
	KindShutdownBeforeDelete
	KindDefaultValue
)

var kindNames = map[AnnotationKind]string{
	KindUnknown:                  "unknown",
	KindReorder:                  "diff-interface-move",
	KindMaxValues:                "max-values",
	KindSplitLongLine:            "split-long-line",
	KindReplaceList:              "replace-list",
	KindInject:                   "inject-interface-config",
	KindDeleteSyntax:             "delete-syntax",
	KindDeleteWithDefault:        "delete-with-default",
	KindBooleanDeleteWithDefault: "boolean-delete-with-default",
	KindTrimWhenListDeleted:      "trim-when-list-deleted",
	KindTrimEmptyCreate:          "trim-empty-create",
	KindTrimDeleteWhenEmpty:      "trim-delete-when-empty",
	KindLowerThan:                "lower-than",
	KindHigherThan:               "higher-than",
	KindStringAddQuotes:          "string-add-quotes",
	KindShutdownBeforeDelete:     "shutdown-container-before-delete",
	KindDefaultValue:             "default-value",
}

// String returns the canonical tag of the kind
func (k AnnotationKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// exactTags resolve tags that carry no variants
var exactTags = map[string]AnnotationKind{
	"delete-syntax":                    KindDeleteSyntax,
	"delete-with-default":              KindDeleteWithDefault,
	"boolean-delete-with-default":      KindBooleanDeleteWithDefault,
	"trim-when-list-deleted":           KindTrimWhenListDeleted,
	"trim-delete-when-empty":           KindTrimDeleteWhenEmpty,
	"lower-than":                       KindLowerThan,
	"higher-than":                      KindHigherThan,
	"string-add-quotes":                KindStringAddQuotes,
	"shutdown-container-before-delete": KindShutdownBeforeDelete,
	"default-value":                    KindDefaultValue,
}

// prefixTags resolve tag families with suffix variants (e.g. "-mode", "-withkey", "-1").
// Order matters: longer prefixes first.
var prefixTags = []struct {
	prefix string
	kind   AnnotationKind
}{
	{"diff-interface-move", KindReorder},
	{"max-values", KindMaxValues},
	{"split-long-line", KindSplitLongLine},
	{"replace-list", KindReplaceList},
	{"inject-interface-config", KindInject},
	{"trim-empty-create", KindTrimEmptyCreate},
}

// KindOf resolves a tag through the exact and prefix lookup tables
func KindOf(tag string) AnnotationKind {
	if k, ok := exactTags[tag]; ok {
		return k
	}
	for _, p := range prefixTags {
		if strings.HasPrefix(tag, p.prefix) {
			return p.kind
		}
	}
	return KindUnknown
}
