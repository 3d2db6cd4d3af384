package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/tanisingh134/carbon/internal/protocol"
)

func TestSSEEmit(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := NewSSE(rec)
	require.NoError(t, err)
	require.False(t, s.Started())

	require.NoError(t, s.Emit(protocol.EventCarbonScore, 55.0))
	require.NoError(t, s.Emit(protocol.EventWeatherImpact, 1.2))
	require.True(t, s.Started())

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.True(t, rec.Flushed)

	body := rec.Body.String()
	require.NotContains(t, body, "event:")
	require.Contains(t, body, `data:{"type":"carbonScore","payload":55}`)
	require.Less(t, strings.Index(body, "carbonScore"), strings.Index(body, "weatherImpact"))
}

type plainWriter struct {
	http.ResponseWriter
}

func TestSSERequiresFlusher(t *testing.T) {
	_, err := NewSSE(plainWriter{})
	require.ErrorIs(t, err, ErrStreamingUnsupported)
}

func TestWebSocketEmitAndWatch(t *testing.T) {
	watched := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ctx, cancel := ws.Watch(context.Background())
		defer cancel()

		if err := ws.Emit(protocol.EventSuggestions, []string{"Switch to LED bulbs or unplug devices."}); err != nil {
			return
		}

		<-ctx.Done()
		close(watched)
		ws.Close(websocket.CloseNormalClosure, "")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var env protocol.RawEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, protocol.EventSuggestions, env.Type)
	require.JSONEq(t, `["Switch to LED bulbs or unplug devices."]`, string(env.Payload))

	require.NoError(t, conn.Close())

	select {
	case <-watched:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not notice the disconnect")
	}
}
