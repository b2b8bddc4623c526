package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/logger"
	"go.uber.org/goleak"
)

type staticFetcher map[string]*Meta

func (f staticFetcher) Fetch(_ context.Context, url string) (*Meta, error) {
	if m, ok := f[url]; ok {
		return m, nil
	}
	return nil, errors.New("not found")
}

func pcMeta() *Meta {
	return &Meta{
		URL: "/models/gaming-pc_meta.json",
		Meshes: []MeshSpec{
			{Name: "cpu-1_Cooler", Min: []float64{0, 0, 0}, Max: []float64{1, 1, 1}},
			{Name: "gpu-1_Board", Min: []float64{2, 0, 0}, Max: []float64{6, 1, 2}},
			{Name: "Case"},
		},
	}
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message")
		return Message{}
	}
}

func TestHubDrivesSessionScene(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(HubOptions{
		Fetcher: staticFetcher{"/models/gaming-pc_meta.json": pcMeta()},
	}, logger.Discard())
	defer hub.CloseAll()

	updates, cancel, err := hub.Subscribe("s1")
	require.NoError(t, err)
	defer cancel()

	initial := receive(t, updates)
	assert.Nil(t, initial.Event)
	assert.Equal(t, "s1", initial.Snapshot.SessionID)
	assert.Equal(t, ViewMode3D, initial.Snapshot.ViewMode)
	assert.Equal(t, 10.0, initial.Snapshot.Camera.Radius)

	_, err = hub.Emit("s1", Event{Kind: EventLoad, ProductID: "1", ModelURL: "/models/gaming-pc.glb"})
	require.NoError(t, err)

	// metadata arrives as an event-less message once applied
	var snap Snapshot
	for {
		msg := receive(t, updates)
		if msg.Event == nil {
			snap = msg.Snapshot
			break
		}
	}
	assert.Equal(t, "/models/gaming-pc_meta.json", snap.MetaURL)
	assert.Equal(t, "1", snap.ProductID)
	assert.Equal(t, []string{"cpu-1_Cooler", "gpu-1_Board", "Case"}, snap.Meshes)

	snap, err = hub.Emit("s1", Event{Kind: EventSelectPart, Code: "GPU-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpu-1_Board"}, snap.Highlighted)

	snap, err = hub.Emit("s1", Event{Kind: EventCameraTo, Code: "gpu-1"})
	require.NoError(t, err)
	assert.Equal(t, Vec3{4, 0.5, 1}, snap.Camera.Target)
	assert.InDelta(t, 8.8, snap.Camera.Radius, 1e-9)
}

func TestHubRejectsInvalidEvents(t *testing.T) {
	hub := NewHub(HubOptions{}, logger.Discard())
	defer hub.CloseAll()

	_, err := hub.Emit("s1", Event{Kind: EventViewMode, Mode: "vr"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
	assert.Zero(t, hub.Len())
}

func TestHubSnapshotUnknownSession(t *testing.T) {
	hub := NewHub(HubOptions{}, logger.Discard())
	_, err := hub.Snapshot("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(HubOptions{}, logger.Discard())
	updates, cancel, err := hub.Subscribe("s1")
	require.NoError(t, err)
	receive(t, updates)

	snap, err := hub.Emit("s1", Event{Kind: EventViewMode, Mode: ViewModeImage})
	require.NoError(t, err)
	assert.Equal(t, ViewModeImage, snap.ViewMode)

	msg := receive(t, updates)
	require.NotNil(t, msg.Event)
	assert.Equal(t, EventViewMode, msg.Event.Kind)

	assert.True(t, hub.Close("s1"))
	assert.False(t, hub.Close("s1"))

	_, open := <-updates
	assert.False(t, open)
	cancel()
	assert.Zero(t, hub.Len())
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub(HubOptions{}, logger.Discard())
	defer hub.CloseAll()

	updates, cancel, err := hub.Subscribe("s1")
	require.NoError(t, err)
	receive(t, updates)
	cancel()
	cancel()

	_, err = hub.Emit("s1", Event{Kind: EventSelectPart, Code: "cpu-1"})
	require.NoError(t, err)
	_, open := <-updates
	assert.False(t, open)
}

func TestHubCapsLiveSessions(t *testing.T) {
	hub := NewHub(HubOptions{MaxSessions: 2}, logger.Discard())
	defer hub.CloseAll()

	view := Event{Kind: EventViewMode, Mode: ViewMode3D}
	_, err := hub.Emit("a", view)
	require.NoError(t, err)
	_, err = hub.Emit("b", view)
	require.NoError(t, err)

	_, err = hub.Emit("c", view)
	assert.ErrorIs(t, err, ErrTooManySessions)
	_, _, err = hub.Subscribe("c")
	assert.ErrorIs(t, err, ErrTooManySessions)

	// existing sessions stay usable at the cap
	_, err = hub.Emit("a", view)
	require.NoError(t, err)

	require.True(t, hub.Close("a"))
	_, err = hub.Emit("c", view)
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Len())
}

func TestHubEvictIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	hub := NewHub(HubOptions{IdleTimeout: 30 * time.Minute}, logger.Discard())
	hub.now = func() time.Time { return now }
	defer hub.CloseAll()

	view := Event{Kind: EventViewMode, Mode: ViewMode3D}
	_, err := hub.Emit("idle", view)
	require.NoError(t, err)

	updates, cancel, err := hub.Subscribe("watched")
	require.NoError(t, err)
	defer cancel()
	receive(t, updates)

	now = start.Add(40 * time.Minute)
	_, err = hub.Emit("fresh", view)
	require.NoError(t, err)

	now = start.Add(45 * time.Minute)
	assert.Equal(t, 1, hub.EvictIdle())

	_, err = hub.Snapshot("idle")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = hub.Snapshot("watched")
	assert.NoError(t, err)
	_, err = hub.Snapshot("fresh")
	assert.NoError(t, err)
	assert.Equal(t, 2, hub.Len())
}

func TestHubEvictIdleDisabled(t *testing.T) {
	hub := NewHub(HubOptions{}, logger.Discard())
	defer hub.CloseAll()

	_, err := hub.Emit("s1", Event{Kind: EventViewMode, Mode: ViewMode3D})
	require.NoError(t, err)
	hub.now = func() time.Time { return time.Now().Add(24 * time.Hour) }

	assert.Zero(t, hub.EvictIdle())
	assert.Equal(t, 1, hub.Len())
}

func TestHubConcurrentEmitsPairEventWithSnapshot(t *testing.T) {
	const perWriter = 50

	hub := NewHub(HubOptions{SubscriberBuffer: 4 * perWriter}, logger.Discard())
	defer hub.CloseAll()

	updates, cancel, err := hub.Subscribe("s1")
	require.NoError(t, err)
	defer cancel()
	receive(t, updates)

	var wg sync.WaitGroup
	for _, mode := range []ViewMode{ViewMode3D, ViewModeImage} {
		wg.Add(1)
		go func(mode ViewMode) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := hub.Emit("s1", Event{Kind: EventViewMode, Mode: mode})
				assert.NoError(t, err)
			}
		}(mode)
	}
	wg.Wait()

	for i := 0; i < 2*perWriter; i++ {
		msg := receive(t, updates)
		require.NotNil(t, msg.Event)
		assert.Equal(t, msg.Event.Mode, msg.Snapshot.ViewMode, "message %d", i)
	}
}
