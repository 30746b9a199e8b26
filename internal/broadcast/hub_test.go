package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary-planner/internal/models"
)

func TestHubRegisterPublishUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{Send: make(chan []byte, 4), TripID: "trip-1"}
	other := &Client{Send: make(chan []byte, 4), TripID: "trip-2"}
	hub.register <- client
	hub.register <- other

	ev := NewTripEvent(EventTripUpdated, &models.Trip{ID: "trip-1", Title: "Tokyo"})
	require.NoError(t, hub.Publish(context.Background(), ev))

	select {
	case got := <-client.Send:
		var decoded TripEvent
		require.NoError(t, json.Unmarshal(got, &decoded))
		assert.Equal(t, EventTripUpdated, decoded.Type)
		assert.Equal(t, "trip-1", decoded.TripID)
		assert.Equal(t, "Tokyo", decoded.Trip.Title)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	select {
	case <-other.Send:
		t.Fatal("client of another trip received the event")
	case <-time.After(50 * time.Millisecond):
	}

	hub.unregister <- client
	assert.Eventually(t, func() bool { return hub.ClientCount("trip-1") == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount("trip-2"))
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{Send: make(chan []byte, 1), TripID: "trip-1"}
	hub.register <- client

	ev := NewTripEvent(EventTripUpdated, &models.Trip{ID: "trip-1"})
	require.NoError(t, hub.Publish(context.Background(), ev))
	require.NoError(t, hub.Publish(context.Background(), ev))

	_, ok := <-client.Send
	assert.True(t, ok, "buffered message should still be delivered")

	select {
	case _, ok := <-client.Send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
	assert.Equal(t, 0, hub.ClientCount("trip-1"))
}

func TestHubPublishAfterStop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()
	hub.Stop()

	err := hub.Publish(context.Background(), NewTripEvent(EventTripDeleted, nil))
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestServeWS(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	router := httprouter.New()
	router.GET("/ws/trips/:id", ServeWS(hub))
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/trips/trip-9"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("trip-9") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), NewTripEvent(EventTripUpdated, &models.Trip{ID: "trip-9"})))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got TripEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "trip-9", got.TripID)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount("trip-9") == 0 }, 2*time.Second, 10*time.Millisecond)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []TripEvent
	err    error
	closed bool
}

func (r *recordingBroadcaster) Publish(ctx context.Context, ev TripEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingBroadcaster) Close() error {
	r.closed = true
	return nil
}

func TestMultiFansOut(t *testing.T) {
	ok := &recordingBroadcaster{}
	failing := &recordingBroadcaster{err: errors.New("broker down")}
	m := Multi(ok, nil, failing)

	err := m.Publish(context.Background(), NewTripEvent(EventTripCreated, &models.Trip{ID: "t"}))
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)

	require.NoError(t, m.Close())
	assert.True(t, ok.closed)
	assert.True(t, failing.closed)
}

func TestNewTripEvent(t *testing.T) {
	ev := NewTripEvent(EventTripCreated, &models.Trip{ID: "abc"})
	assert.Equal(t, "abc", ev.TripID)
	assert.False(t, ev.At.IsZero())

	deleted := NewTripEvent(EventTripDeleted, nil)
	assert.Empty(t, deleted.TripID)
}

func TestRedisPublisherReportsUnreachableServer(t *testing.T) {
	p := NewRedisPublisher(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond}, "")
	defer p.Close()
	assert.Equal(t, DefaultRedisChannel, p.channel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := p.Publish(ctx, NewTripEvent(EventTripUpdated, &models.Trip{ID: "t"}))
	assert.ErrorContains(t, err, DefaultRedisChannel)
}

func TestPublisherBreakerTripsAfterFourFailures(t *testing.T) {
	settings := publisherBreakerSettings("test")
	assert.False(t, settings.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 3}))
	assert.True(t, settings.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 4}))
}
