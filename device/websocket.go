package device

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/gorilla/websocket"
)

// wsConn adapts a serial-over-websocket bridge where every text
// message carries one line.
type wsConn struct {
	ws *websocket.Conn

	r         io.Reader
	last      byte
	pendingNL bool

	wMx sync.Mutex
}

// DialWebsocket connects to a line bridge at url. Use the result with NewConn.
func DialWebsocket(ctx context.Context, url string) (io.ReadWriteCloser, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWebsocketRW(ws), nil
}

// NewWebsocketRW wraps an established websocket connection.
func NewWebsocketRW(ws *websocket.Conn) io.ReadWriteCloser {
	return &wsConn{ws: ws}
}

func (w *wsConn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if w.pendingNL {
			w.pendingNL = false
			p[0] = '\n'
			return 1, nil
		}
		if w.r == nil {
			_, r, err := w.ws.NextReader()
			if err != nil {
				return 0, err
			}
			w.r = r
			w.last = '\n'
		}

		n, err := w.r.Read(p)
		if n > 0 {
			w.last = p[n-1]
		}
		if err == io.EOF {
			// messages may omit the terminator
			w.r = nil
			w.pendingNL = w.last != '\n'
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Write sends each line of p as its own text message.
func (w *wsConn) Write(p []byte) (int, error) {
	w.wMx.Lock()
	defer w.wMx.Unlock()
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		err := w.ws.WriteMessage(websocket.TextMessage, line)
		if err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	w.wMx.Lock()
	w.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	w.wMx.Unlock()
	return w.ws.Close()
}
