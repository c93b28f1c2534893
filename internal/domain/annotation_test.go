package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		tag  string
		want AnnotationKind
	}{
		{"max-values", KindMaxValues},
		{"max-values-mode", KindMaxValues},
		{"replace-list-withkey", KindReplaceList},
		{"inject-interface-config-1", KindInject},
		{"diff-interface-move-2", KindReorder},
		{"delete-syntax", KindDeleteSyntax},
		{"boolean-delete-with-default", KindBooleanDeleteWithDefault},
		{"trim-empty-create", KindTrimEmptyCreate},
		{"string-add-quotes", KindStringAddQuotes},
		{"default-value", KindDefaultValue},
		{"no-such-policy", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.tag))
		})
	}
}

func TestParseAnnotation(t *testing.T) {
	a, err := ParseAnnotation("  ! meta-data :: /router/bgp{1}/neighbor :: max-values :: 2 :: 4 :: ,")
	require.NoError(t, err)

	assert.Equal(t, "/router/bgp{1}/neighbor", a.Path)
	assert.Equal(t, "max-values", a.Tag)
	assert.Equal(t, KindMaxValues, a.Kind())
	assert.Equal(t, "4", a.Value(1))
	assert.Equal(t, "", a.Value(7))
	assert.Equal(t, "! meta-data :: /router/bgp{1}/neighbor :: max-values :: 2 :: 4 :: ,", a.String())

	b, err := ParseAnnotation(a.String())
	require.NoError(t, err)
	assert.Equal(t, a.Key(), b.Key())
}

func TestParseAnnotationMalformed(t *testing.T) {
	tests := []string{
		"! meta-data :: /only/path",
		"! meta-data ::  :: tag",
	}
	for _, raw := range tests {
		_, err := ParseAnnotation(raw)
		require.Error(t, err, raw)
		var me *AnnotationMalformedError
		assert.True(t, errors.As(err, &me))
	}
}

func TestErrorTaxonomy(t *testing.T) {
	rej := &DeviceRejectedError{Line: "vlan 5000", Reply: "% Invalid input", Attempts: 4}
	assert.ErrorIs(t, rej, ErrDeviceRejected)
	assert.Contains(t, rej.Error(), "[3 retries]")
	assert.True(t, IsFatal(rej))

	retry := &DeviceRejectedError{Line: "x", Retryable: true}
	assert.False(t, IsFatal(retry))

	q := &SupplementaryQueryUnsupportedError{Query: "show vtp status"}
	assert.ErrorIs(t, q, ErrQueryUnsupported)
	assert.False(t, IsFatal(q))

	assert.ErrorIs(t, &ProtocolTimeoutError{Expected: "prompt"}, ErrProtocolTimeout)
	assert.ErrorIs(t, &ModeExitUnexpectedError{Line: "end"}, ErrModeExitUnexpected)
	assert.ErrorIs(t, &ReconcileInconsistencyError{List: "A"}, ErrReconcileInconsistency)
	assert.False(t, IsFatal(nil))
}

func TestReplyClassAccepted(t *testing.T) {
	assert.True(t, ReplyWarning.Accepted())
	assert.False(t, ReplyRetryable.Accepted())
	assert.False(t, ReplyFatal.Accepted())
	assert.Equal(t, "retryable", ReplyRetryable.String())
}
