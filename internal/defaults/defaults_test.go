package defaults

import (
	"context"
	"testing"

	"iosctl/internal/domain"
	"iosctl/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cosMap = " ! meta-data :: /interface/GigabitEthernet{0/1}/wrr-queue/cos-map :: default-value :: $1 $2<NL> <DEFAULT><NL>exit"

func parse(t *testing.T, text string) *domain.Buffer {
	t.Helper()
	buf, err := domain.ParseBuffer(text)
	require.NoError(t, err)
	return buf
}

func TestPathTokens(t *testing.T) {
	assert.Equal(t, []string{"interface", "GigabitEthernet 0/1", "wrr-queue"},
		pathTokens("/interface/GigabitEthernet{0/1}/wrr-queue"))
	assert.Equal(t, []string{"hostname"}, pathTokens("/hostname"))
}

func TestRecordAndInject(t *testing.T) {
	ctx := context.Background()
	cache := repository.NewMemory()
	c := New(cache, "C6509", zerolog.Nop())

	set := parse(t, "interface GigabitEthernet0/1\n"+cosMap+" :: wrr-queue cos-map 1 1 0\n wrr-queue cos-map 1 1 0\n!")
	require.NoError(t, c.Record(ctx, set))

	entries, err := cache.List(ctx, repository.PrefixDefaults)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "defaults/interface/GigabitEthernet{0/1}/wrr-queue/wrr-queuecos-map110", entries[0].Path)

	show, err := c.Inject(ctx, "hostname r1\n")
	require.NoError(t, err)
	assert.Equal(t, "interface GigabitEthernet 0/1\n wrr-queue cos-map 1 1 0\nexit\nhostname r1\n", show)

	del := parse(t, "interface GigabitEthernet0/1\n"+cosMap+" :: wrr-queue cos-map 1 1 0\n no wrr-queue cos-map 1 1 0\n!")
	require.NoError(t, c.Record(ctx, del))
	show, err = c.Inject(ctx, "hostname r1\n")
	require.NoError(t, err)
	assert.Equal(t, "hostname r1\n", show)
}

func TestRecordOnlyDefaults(t *testing.T) {
	tests := []struct {
		name   string
		values string
		line   string
		model  string
		cached bool
	}{
		{"listed default", " :: wrr-queue cos-map 1 1 0", "wrr-queue cos-map 1 1 0", "", true},
		{"not a default", " :: wrr-queue cos-map 1 1 0", "wrr-queue cos-map 1 1 5", "", false},
		{"model match", " :: wrr-queue cos-map 1 1 0 MODEL=C65", "wrr-queue cos-map 1 1 0", "C6509", true},
		{"model mismatch", " :: wrr-queue cos-map 1 1 0 MODEL=C65", "wrr-queue cos-map 1 1 0", "C3750", false},
		{"default map", " :: MAP=WRR-QUEUE-COSMAP-3", "wrr-queue cos-map 3 1 6", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cache := repository.NewMemory()
			c := New(cache, tt.model, zerolog.Nop())
			buf := parse(t, "interface GigabitEthernet0/1\n"+cosMap+tt.values+"\n "+tt.line+"\n!")
			require.NoError(t, c.Record(ctx, buf))

			entries, err := cache.List(ctx, repository.PrefixDefaults)
			require.NoError(t, err)
			assert.Equal(t, tt.cached, len(entries) == 1)
		})
	}
}

func TestRecordMalformed(t *testing.T) {
	c := New(repository.NewMemory(), "", zerolog.Nop())

	buf := parse(t, "! meta-data :: /hostname :: default-value :: $1\nhostname r1")
	err := c.Record(context.Background(), buf)
	assert.ErrorIs(t, err, domain.ErrAnnotationMalformed)

	buf = parse(t, "! meta-data :: /hostname :: default-value :: $5 :: hostname r1\nhostname r1")
	err = c.Record(context.Background(), buf)
	assert.ErrorIs(t, err, domain.ErrAnnotationMalformed)
}
