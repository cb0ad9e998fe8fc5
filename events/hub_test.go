package events

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertEmpty(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}

func TestHub_FiltersByTable(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// GIVEN: one subscriber per table and one for everything
	tenants, cancelTenants := hub.Subscribe(TableTenants)
	defer cancelTenants()
	all, cancelAll := hub.Subscribe("")
	defer cancelAll()

	// WHEN: an installment changes
	hub.Publish(Event{Table: TableInstallments, Action: ActionUpdate, ID: "inst-1"})

	// THEN: only the catch-all subscriber sees it
	e := receive(t, all)
	assert.Equal(t, "inst-1", e.ID)
	assert.False(t, e.At.IsZero(), "publish stamps the time")
	assertEmpty(t, tenants)

	// WHEN: a tenant is inserted
	hub.Publish(Event{Table: TableTenants, Action: ActionInsert, ID: "t-1"})

	// THEN: both see it
	assert.Equal(t, ActionInsert, receive(t, tenants).Action)
	assert.Equal(t, "t-1", receive(t, all).ID)
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHubWithBuffer(2)
	defer hub.Close()

	dropped := 0
	hub.OnDrop = func(Event) { dropped++ }

	ch, cancel := hub.Subscribe("")
	defer cancel()

	// WHEN: more events than the buffer holds are published
	for i := 0; i < 5; i++ {
		hub.Publish(Event{Table: TableTenants, Action: ActionUpdate})
	}

	// THEN: the writer was never blocked and the excess was counted
	assert.Equal(t, 3, dropped)
	receive(t, ch)
	receive(t, ch)
	assertEmpty(t, ch)
}

func TestHub_CancelAndClose(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(TableTenants)
	assert.Equal(t, 1, hub.Subscribers())

	cancel()
	cancel() // idempotent
	assert.Equal(t, 0, hub.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)

	other, _ := hub.Subscribe("")
	hub.Close()
	hub.Close()
	_, ok = <-other
	assert.False(t, ok)

	// Publishing and subscribing after close are harmless.
	hub.Publish(Event{Table: TableTenants})
	late, _ := hub.Subscribe("")
	_, ok = <-late
	assert.False(t, ok)
}

func TestServeWS_StreamsMatchingEvents(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)

	srv := httptest.NewServer(ServeWS(hub, log))
	defer srv.Close()

	// GIVEN: a client subscribed to installment changes
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?table=" + TableInstallments
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	// WHEN: a tenant change and then an installment change are published
	hub.Publish(Event{Table: TableTenants, Action: ActionInsert, ID: "t-1"})
	hub.Publish(Event{Table: TableInstallments, Action: ActionUpdate, ID: "inst-9"})

	// THEN: only the installment change arrives
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, TableInstallments, got.Table)
	assert.Equal(t, "inst-9", got.ID)
	assert.Equal(t, ActionUpdate, got.Action)
}
