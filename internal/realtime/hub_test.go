package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/models"
)

type fakeSource struct {
	mu   sync.Mutex
	view models.View
	subs []chan models.View
}

func (f *fakeSource) View() models.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeSource) Subscribe() (<-chan models.View, func()) {
	ch := make(chan models.View, 4)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch, func() {}
}

func (f *fakeSource) publish(v models.View) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view = v
	for _, ch := range f.subs {
		ch <- v
	}
}

func (f *fakeSource) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		close(ch)
	}
	f.subs = nil
}

func (f *fakeSource) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func dial(t *testing.T, hub *Hub, src Source) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "s-1", src)
	}))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ws: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal event: %v msg=%s", err, string(msg))
	}
	return ev
}

func TestServeSendsCurrentViewThenUpdates(t *testing.T) {
	src := &fakeSource{view: models.View{Phase: models.PhaseLoading, IsLoading: true, Version: 1}}
	hub := NewHub()
	conn := dial(t, hub, src)

	ev := readEvent(t, conn)
	if ev.Type != EventViewUpdated || ev.Session != "s-1" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.View.Phase != models.PhaseLoading {
		t.Fatalf("expected initial loading view, got %+v", ev.View)
	}

	deadline := time.Now().Add(time.Second)
	for src.subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	src.publish(models.View{Phase: models.PhaseLoaded, Version: 2, Favorites: []string{"Paris"}})

	ev = readEvent(t, conn)
	if ev.View.Version != 2 || len(ev.View.Favorites) != 1 {
		t.Fatalf("unexpected update %+v", ev.View)
	}
	if hub.Clients("s-1") != 1 {
		t.Fatalf("expected one client registered, got %d", hub.Clients("s-1"))
	}
}

func TestServeClosesWhenSourceCloses(t *testing.T) {
	src := &fakeSource{}
	hub := NewHub()
	conn := dial(t, hub, src)
	readEvent(t, conn)

	deadline := time.Now().Add(time.Second)
	for src.subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	src.close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
}
