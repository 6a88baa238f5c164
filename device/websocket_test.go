package device

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoBridge answers every line with ACK:<cmd>, without a terminator.
func echoBridge(t *testing.T) *httptest.Server {
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws, err := up.Upgrade(w, req, nil)
		if err != nil {
			t.Log("upgrade:", err)
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			cmd, _, _ := strings.Cut(string(data), ":")
			ws.WriteMessage(websocket.TextMessage, []byte("INFO:got "+cmd))
			ws.WriteMessage(websocket.TextMessage, []byte("ACK:"+cmd))
		}
	}))
}

func TestDialWebsocket(t *testing.T) {
	srv := echoBridge(t)
	defer srv.Close()

	ctx := context.Background()
	rw, err := DialWebsocket(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)

	c := NewConn(rw)
	defer c.Close()

	for _, cmd := range []string{"PU:", "PA:1,2", "SP:10"} {
		require.NoError(t, c.SendLine(cmd))
		line, ok := c.AwaitLine(ctx, 2*time.Second)
		require.True(t, ok)
		want, _, _ := strings.Cut(cmd, ":")
		assert.Equal(t, "ACK:"+want, line)
	}
}
