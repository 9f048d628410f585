package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/internal/queue"
	"github.com/nimasrn/seva-booking/pkg/auth"
	"github.com/nimasrn/seva-booking/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	hub    *Hub
	tokens *auth.Manager
	srv    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	tokens, err := auth.NewManager("realtime-secret", "seva-booking", time.Hour)
	require.NoError(t, err)
	hub := NewHub()
	srv := httptest.NewServer(SetupRouter(NewHandler(hub, tokens, []string{"*"}), []string{"*"}))
	t.Cleanup(srv.Close)
	return &testServer{hub: hub, tokens: tokens, srv: srv}
}

func (s *testServer) wsURL(query string) string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?" + query
}

func TestHandler_Subscribe(t *testing.T) {
	s := newTestServer(t)
	token, err := s.tokens.Generate(uuid.New(), "a@example.com")
	require.NoError(t, err)
	sevaID := uuid.New()

	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL("token="+token+"&table=donors&seva_id="+sevaID.String()), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	s.hub.Broadcast(model.ChangeEvent{Table: model.TableSevas, Event: model.ChangeUpdate, ID: sevaID})
	donorID := uuid.New()
	s.hub.Broadcast(model.ChangeEvent{Table: model.TableDonors, Event: model.ChangeInsert, ID: donorID, SevaID: &sevaID})

	var got model.ChangeEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, model.TableDonors, got.Table)
	assert.Equal(t, donorID, got.ID)

	conn.Close()
	assert.Eventually(t, func() bool { return s.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_ClosedSubscriberAsksClientToResync(t *testing.T) {
	s := newTestServer(t)
	token, err := s.tokens.Generate(uuid.New(), "")
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL("token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	s.hub.mu.RLock()
	var sub *Subscriber
	for c := range s.hub.subs {
		sub = c
	}
	s.hub.mu.RUnlock()
	sub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater))
}

func TestHandler_SubscribeRejects(t *testing.T) {
	s := newTestServer(t)
	token, err := s.tokens.Generate(uuid.New(), "")
	require.NoError(t, err)

	cases := map[string]struct {
		query  string
		status int
	}{
		"missing token": {query: "table=donors", status: http.StatusUnauthorized},
		"bad token":     {query: "token=nope", status: http.StatusUnauthorized},
		"unknown table": {query: "token=" + token + "&table=users", status: http.StatusBadRequest},
		"bad seva id":   {query: "token=" + token + "&seva_id=12", status: http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(tc.query), nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, s.hub.ClientCount())
}

func TestHandler_Health(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFanout_DeliversStreamEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)

	changes, err := queue.NewQueue(adapter, queue.QueueConfig{
		Name:          "changes",
		ConsumerGroup: "realtime-test",
		ConsumerName:  "rt-1",
		PollInterval:  20 * time.Millisecond,
		StartID:       "$",
	})
	require.NoError(t, err)
	defer changes.Stop(time.Second)

	hub := NewHub()
	sub := NewSubscriber(uuid.New(), model.TablePaymentHistory, nil)
	hub.Register(sub)
	require.NoError(t, NewFanout(hub, changes).Start())

	ctx := context.Background()
	_, err = changes.Publish(ctx, []byte("not json"), nil)
	require.NoError(t, err)
	paymentID := uuid.New()
	_, err = changes.PublishChange(ctx, model.ChangeEvent{Table: model.TablePaymentHistory, Event: model.ChangeInsert, ID: paymentID})
	require.NoError(t, err)

	select {
	case data := <-sub.Send:
		assert.Contains(t, string(data), paymentID.String())
	case <-time.After(2 * time.Second):
		t.Fatal("event not fanned out")
	}
}
