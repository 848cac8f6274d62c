package stream

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const closeGracePeriod = time.Second

// connection is one logical socket. Events produced by its goroutines are
// only applied while it is still the controller's current connection.
type connection struct {
	id     uint64
	url    string
	ctx    context.Context
	cancel context.CancelFunc
	ws     *websocket.Conn // set on the loop once the dial succeeded
}

func newConnection(id uint64, target string) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{id: id, url: target, ctx: ctx, cancel: cancel}
}

// close aborts a pending dial or performs a normal closure of an open socket.
func (conn *connection) close() {
	conn.cancel()
	if conn.ws == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	_ = conn.ws.Close()
}

// parseTarget validates a connect target. Failures here are transport-open
// failures: the attempt never reaches the network.
func parseTarget(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(ErrTransportOpen, "failed to connect: %v", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "ws" && scheme != "wss" {
		return "", errors.Wrapf(ErrTransportOpen, "failed to connect: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Wrap(ErrTransportOpen, "failed to connect: missing host")
	}
	return u.String(), nil
}

// closeStatus extracts the close code from a read error and whether the
// closing handshake was completed by the peer.
func closeStatus(err error) (code int, clean bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		// gorilla reports a dropped TCP stream as a synthetic 1006
		return ce.Code, ce.Code != websocket.CloseAbnormalClosure
	}
	if errors.Is(err, websocket.ErrReadLimit) {
		return websocket.CloseMessageTooBig, false
	}
	return websocket.CloseAbnormalClosure, false
}

// intendedClose reports whether a close needs no error annotation.
func intendedClose(code int, clean bool) bool {
	return clean && code == websocket.CloseNormalClosure
}

func (c *Controller) dial(conn *connection) {
	ws, _, err := c.dialer.DialContext(conn.ctx, conn.url, nil)
	posted := c.post(conn, func() { c.handleOpen(conn, ws, err) })
	if !posted && ws != nil {
		_ = ws.Close()
	}
}

func (c *Controller) read(conn *connection, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.post(conn, func() { c.handleClose(conn, err) })
			return
		}
		if !c.post(conn, func() { c.handleFrame(conn, data) }) {
			return
		}
	}
}

// post hands fn to the loop. It gives up once conn was torn down or the
// loop has stopped.
func (c *Controller) post(conn *connection, fn func()) bool {
	select {
	case c.inbox <- fn:
		return true
	case <-conn.ctx.Done():
		return false
	case <-c.done:
		return false
	}
}
