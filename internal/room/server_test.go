package room

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typerace/internal/generator"
	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/provider"
	"github.com/verte-zerg/typerace/internal/race"
)

func newTestServer(t *testing.T, sub Submitter) (*Server, *httptest.Server) {
	t.Helper()
	local := provider.NewLocal(generator.NewSeeded(42), []string{"red", "green", "blue"}, generator.Options{})
	srv := NewServer(ServerOptions{Hub: HubOptions{Provider: local, Submitter: sub, TextWords: 8}, APILimit: -1})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAPIRateLimitPerClient(t *testing.T) {
	local := provider.NewLocal(generator.NewSeeded(1), []string{"red"}, generator.Options{})
	srv := NewServer(ServerOptions{Hub: HubOptions{Provider: local}, APILimit: 2})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	for i := 0; i < 2; i++ {
		code, _ := get(t, ts.URL+"/api/text?count=3")
		require.Equal(t, http.StatusOK, code)
	}
	code, body := get(t, ts.URL+"/api/text?count=3")
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Contains(t, body, "too many requests")

	code, _ = get(t, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, code, "only /api is limited")
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t, nil)
	code, body := get(t, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `"status":"ok"`)

	code, body = get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "typerace_room_active_rooms")
	require.Contains(t, body, "typerace_room_connected_players")
}

func TestTextEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	code, body := get(t, ts.URL+"/api/text?mode=solo&count=5")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, strings.Fields(body), 5)

	code, body = get(t, ts.URL+"/api/text")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, strings.Fields(body), 8, "defaults to the race text length")

	code, body = get(t, ts.URL+"/api/text?mode=code")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "\n")

	code, _ = get(t, ts.URL+"/api/text?count=0")
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, ts.URL+"/api/text?mode=chess")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestScoresEndpoint(t *testing.T) {
	sub := &memSubmitter{}
	_, ts := newTestServer(t, sub)

	payload, err := json.Marshal(model.Result{Mode: model.ModeSolo, WPM: 72, RawWPM: 75, Accuracy: 96, WordsTyped: 36, DurationMs: 30000})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/scores", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out["id"])

	require.Len(t, sub.results, 1)
	require.Equal(t, out["id"], sub.results[0].ID)
	require.False(t, sub.results[0].CompletedAt.IsZero())

	for _, bad := range []string{`not json`, `{"mode":"chess"}`, `{"mode":"solo","accuracy":140}`, `{}`} {
		resp, err := http.Post(ts.URL+"/api/scores", "application/json", strings.NewReader(bad))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
}

func TestScoresEndpointWithoutStorage(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/api/scores", "application/json", strings.NewReader(`{"mode":"solo","wpm":10}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func waitFor(t *testing.T, c *race.Client, want race.MessageType) race.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case data := <-c.Inbox():
			ev, err := c.HandleMessage(data)
			require.NoError(t, err)
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestRaceOverWebsocket(t *testing.T) {
	sub := &memSubmitter{}
	srv, ts := newTestServer(t, sub)
	ctx := context.Background()

	ann := race.NewClient(race.NewWSTransport(ts.URL, nil), race.Options{Room: "duel", Player: "ann"})
	bob := race.NewClient(race.NewWSTransport(ts.URL, nil), race.Options{Room: "duel", Player: "bob"})
	t.Cleanup(func() {
		_ = ann.Close()
		_ = bob.Close()
	})

	require.NoError(t, ann.Connect(ctx))
	waitFor(t, ann, race.TypePlayerUpdate)
	require.NoError(t, bob.Connect(ctx))

	startA := waitFor(t, ann, race.TypeStart)
	startB := waitFor(t, bob, race.TypeStart)
	require.Equal(t, startA.Text, startB.Text)
	require.Len(t, strings.Fields(startA.Text), 8)
	require.Equal(t, race.StateRacing, ann.State())

	require.NoError(t, bob.Progress(ctx, 50, 70))
	require.NoError(t, bob.Finish(ctx, race.Final{WPM: 70, Accuracy: 99, WordsTyped: 8, Duration: 7 * time.Second}))

	finA := waitFor(t, ann, race.TypeFinish)
	require.Equal(t, "bob", finA.Winner)
	finB := waitFor(t, bob, race.TypeFinish)
	require.Equal(t, "bob", finB.Winner)

	require.Eventually(t, func() bool {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		return len(sub.results) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ann.Close())
	require.NoError(t, bob.Close())
	require.Eventually(t, func() bool { return srv.Hub().RoomCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestDuplicatePlayerIsRefused(t *testing.T) {
	_, ts := newTestServer(t, nil)
	ctx := context.Background()
	first := race.NewClient(race.NewWSTransport(ts.URL, nil), race.Options{Room: "r", Player: "ann"})
	t.Cleanup(func() { _ = first.Close() })
	require.NoError(t, first.Connect(ctx))
	waitFor(t, first, race.TypePlayerUpdate)

	tr := race.NewWSTransport(ts.URL, nil)
	frames := make(chan []byte, 1)
	tr.Subscribe(func(data []byte) { frames <- data })
	require.NoError(t, tr.Join(ctx, "r", "ann"))
	t.Cleanup(func() { _ = tr.Close() })

	select {
	case <-frames:
		t.Fatal("duplicate connection should not receive room traffic")
	case <-time.After(200 * time.Millisecond):
	}
}
