package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/compliops/internal/models"
)

// dispatcherMockNotifier is a test notifier that can be configured to fail.
type dispatcherMockNotifier struct {
	name      string
	shouldErr bool

	mu   sync.Mutex
	sent []*models.Alert
}

func (m *dispatcherMockNotifier) Name() string {
	return m.name
}

func (m *dispatcherMockNotifier) Send(ctx context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, alert)
	if m.shouldErr {
		return errors.New("mock send error")
	}
	return nil
}

func (m *dispatcherMockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type memorySink struct {
	err    error
	alerts []*models.Alert
}

func (s *memorySink) Create(ctx context.Context, alert *models.Alert) error {
	if s.err != nil {
		return s.err
	}
	alert.ID = "stored"
	s.alerts = append(s.alerts, alert)
	return nil
}

func TestDispatcher_SendsToAllNotifiers(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	slack := &dispatcherMockNotifier{name: "slack"}
	teams := &dispatcherMockNotifier{name: "teams"}
	d.Register(slack)
	d.Register(teams)

	require.NoError(t, d.Dispatch(context.Background(), testAlert()))
	assert.Equal(t, 1, slack.count())
	assert.Equal(t, 1, teams.count())
	assert.Equal(t, 2, d.Len())
}

func TestDispatcher_MinImpact(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinImpact: models.ImpactHigh})
	n := &dispatcherMockNotifier{name: "slack"}
	d.Register(n)

	low := testAlert()
	low.Impact.Level = models.ImpactMedium
	require.NoError(t, d.Dispatch(context.Background(), low))
	assert.Zero(t, n.count(), "medium alert should not be sent with min impact High")

	require.NoError(t, d.Dispatch(context.Background(), testAlert()))
	assert.Equal(t, 1, n.count(), "high alert should be sent")
}

func TestDispatcher_PartialFailure(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	ok := &dispatcherMockNotifier{name: "slack"}
	failing := &dispatcherMockNotifier{name: "teams", shouldErr: true}
	d.Register(ok)
	d.Register(failing)

	err := d.Dispatch(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teams")
	assert.Equal(t, 1, ok.count(), "healthy notifier should still receive the alert")
}

func TestDispatcher_RateLimited(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{RateLimit: RateLimitConfig{MaxPerWindow: 1}})
	n := &dispatcherMockNotifier{name: "slack"}
	d.Register(n)

	require.NoError(t, d.Dispatch(context.Background(), testAlert()))
	assert.ErrorIs(t, d.Dispatch(context.Background(), testAlert()), ErrRateLimited)
	assert.Equal(t, 1, n.count())
	assert.EqualValues(t, 1, d.RateLimitStats().Dropped)
}

func TestDispatcher_NoNotifiersDoesNotConsumeBudget(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{RateLimit: RateLimitConfig{MaxPerWindow: 1}})
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Dispatch(context.Background(), testAlert()), "dispatch %d", i)
	}

	n := &dispatcherMockNotifier{name: "slack"}
	d.Register(n)
	require.NoError(t, d.Dispatch(context.Background(), testAlert()))
	assert.Equal(t, 1, n.count())
}

func TestSink_NotifiesAfterCreate(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	n := &dispatcherMockNotifier{name: "slack", shouldErr: true}
	d.Register(n)
	store := &memorySink{}

	sink := NewSink(store, d, 0, zap.NewNop())
	require.NoError(t, sink.Create(context.Background(), testAlert()), "notification errors must not fail create")
	require.Len(t, store.alerts, 1)
	require.Equal(t, 1, n.count())
	assert.Equal(t, "stored", n.sent[0].ID, "notification should carry the stored alert")
}

func TestSink_StoreFailureSkipsNotification(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	n := &dispatcherMockNotifier{name: "slack"}
	d.Register(n)

	storeErr := errors.New("disk full")
	sink := NewSink(&memorySink{err: storeErr}, d, 0, zap.NewNop())
	assert.ErrorIs(t, sink.Create(context.Background(), testAlert()), storeErr)
	assert.Zero(t, n.count(), "no notification should be sent for an unsaved alert")
}
