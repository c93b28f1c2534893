package apply

import (
	"context"
	"testing"

	"iosctl/internal/datastore"
	"iosctl/internal/domain"
	"iosctl/internal/repository"
	"iosctl/internal/transmit"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

const rejected = "                ^\r\n% Invalid input detected at '^' marker.\r\n"

type mockDevice struct {
	mock.Mock
}

func (m *mockDevice) EnterConfig(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDevice) ExitConfig(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDevice) Send(ctx context.Context, buf *domain.Buffer, mode transmit.Mode) error {
	return m.Called(ctx, buf.Texts(), mode).Error(0)
}

func (m *mockDevice) Exec(ctx context.Context, cmd string) (string, error) {
	args := m.Called(ctx, cmd)
	return args.String(0), args.Error(1)
}

func (m *mockDevice) Warnings() string {
	return m.Called().String(0)
}

func (m *mockDevice) LastOK() string {
	return m.Called().String(0)
}

// rejectQueries answers every other exec command as unknown. Register it last.
func (m *mockDevice) rejectQueries() {
	m.On("Exec", mock.Anything, mock.Anything).Return(rejected, nil)
}

// configMode expects one config-mode round trip
func (m *mockDevice) configMode(texts []string, mode transmit.Mode, err error) {
	m.On("EnterConfig", mock.Anything).Return(nil).Once()
	m.On("Send", mock.Anything, texts, mode).Return(err).Once()
	m.On("ExitConfig", mock.Anything).Return(nil).Once()
	m.On("LastOK").Return("")
	m.On("Warnings").Return("")
}

func (m *mockDevice) execCount(cmd string) int {
	n := 0
	for _, c := range m.Calls {
		if c.Method == "Exec" && c.Arguments.String(1) == cmd {
			n++
		}
	}
	return n
}

func newSession(t *testing.T, dev *mockDevice, opts Options) (*Session, repository.OperCache) {
	t.Helper()
	store := datastore.NewStore()
	store.Load("tx", nil, nil)
	cache := repository.NewMemory()
	s := New(NewState("C2960"), Deps{Device: dev, Store: store, Cache: cache}, opts, zerolog.Nop())
	return s, cache
}
