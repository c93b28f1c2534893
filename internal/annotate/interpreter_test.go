package annotate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"iosctl/internal/datastore"
	"iosctl/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run interprets text against the given before/after configuration
func run(t *testing.T, model string, from, to *datastore.Snapshot, text ...string) ([]string, error) {
	t.Helper()
	ctx := context.Background()

	store := datastore.NewStore()
	store.Load("tx", from, to)
	var out []string
	err := datastore.WithHandles(ctx, store, "tx", func(f, tt datastore.Handle) error {
		buf, err := domain.ParseBuffer(strings.Join(text, "\n"))
		require.NoError(t, err)
		res, err := New(model, zerolog.Nop()).Interpret(ctx, buf, f, tt)
		if err != nil {
			return err
		}
		out = res.Texts()
		return nil
	})
	assert.Equal(t, 0, store.Attached())
	return out, err
}

func snap(kv ...string) *datastore.Snapshot {
	s := datastore.NewSnapshot()
	for i := 0; i+1 < len(kv); i += 2 {
		s.Set(kv[i], kv[i+1])
	}
	return s
}

func TestInterpretWithoutAnnotations(t *testing.T) {
	in := []string{
		"interface GigabitEthernet0/1",
		" shutdown",
		"!",
		"hostname r1",
	}
	out, err := run(t, "", nil, nil, in...)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnknownAnnotationDropped(t *testing.T) {
	out, err := run(t, "", nil, nil,
		"! meta-data :: /hostname :: no-such-policy :: x",
		"hostname r1",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"hostname r1"}, out)
}

func TestMalformedAnnotation(t *testing.T) {
	tests := []struct {
		name string
		text []string
	}{
		{
			name: "too few values",
			text: []string{"! meta-data :: /ip/name-server :: max-values :: 2", "ip name-server 1.1.1.1"},
		},
		{
			name: "offset not a number",
			text: []string{"! meta-data :: /ip/name-server :: max-values :: two :: 3", "ip name-server 1.1.1.1"},
		},
		{
			name: "bad regexp",
			text: []string{
				"interface Gi0/1",
				" ! meta-data :: /interface/Gi{0/1}/x :: diff-interface-move :: ([ :: before :: switchport",
				" switchport",
				"!",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", nil, nil, tt.text...)
			require.Error(t, err)
			var me *domain.AnnotationMalformedError
			assert.True(t, errors.As(err, &me))
			assert.True(t, domain.IsFatal(err))
		})
	}
}

func TestAccessListReconciledAgainstFrom(t *testing.T) {
	from := snap("/ip/access-list/extended{WEB}/rule{permit ip any any}", "")
	out, err := run(t, "", from, from,
		"ip access-list extended WEB",
		" ! insert before permit ip any any",
		" permit tcp any any",
		"!",
		"hostname r1",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ip access-list resequence WEB 1000 1000",
		"ip access-list extended WEB",
		" 1 permit tcp any any",
		"exit",
		"ip access-list resequence WEB 10 10",
		"hostname r1",
	}, out)
}

func TestAccessListNewList(t *testing.T) {
	out, err := run(t, "", nil, nil,
		"ip access-list extended NEW",
		" ! insert after permit ip any any",
		" permit udp any any",
		"!",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ip access-list extended NEW",
		" permit udp any any",
		"exit",
	}, out)
}

func TestAccessListInconsistency(t *testing.T) {
	_, err := run(t, "", nil, nil,
		"ip access-list extended NEW",
		" ! move after permit ip any any",
		" permit udp any any",
		"!",
	)
	assert.ErrorIs(t, err, domain.ErrAnnotationMalformed)
}

func TestNthIndex(t *testing.T) {
	assert.Equal(t, 2, nthIndex("ip name-server a", " ", 1))
	assert.Equal(t, 14, nthIndex("ip name-server a", " ", 2))
	assert.Equal(t, -1, nthIndex("ip name-server a", " ", 3))
	assert.Equal(t, -1, nthIndex("x", " ", 0))
}
