package syncx

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/hangarshare/cli/pkg/api"
)

// Channel is one live change-notification stream
type Channel interface {
	// Recv blocks until the next raw notification or an error. A closed
	// channel returns an error.
	Recv() ([]byte, error)
	Close() error
}

// Dialer opens change-notification channels. It is injected into the
// subscription manager so tests can substitute a scripted stream.
type Dialer interface {
	OpenChannel(ctx context.Context, entity api.EntityType, filter string) (Channel, error)
}

// ChannelConfig holds websocket dialer configuration
type ChannelConfig struct {
	Host   string
	Port   int
	Path   string
	UseTLS bool
}

// WSDialer dials the server's change-notification websocket
type WSDialer struct {
	config ChannelConfig
}

// NewWSDialer creates a websocket dialer
func NewWSDialer(config ChannelConfig) *WSDialer {
	return &WSDialer{config: config}
}

// OpenChannel dials one channel scoped to an entity collection and an
// optional server-side filter expression
func (d *WSDialer) OpenChannel(ctx context.Context, entity api.EntityType, filter string) (Channel, error) {
	scheme := "ws"
	if d.config.UseTLS {
		scheme = "wss"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", d.config.Host, d.config.Port),
		Path:   d.config.Path,
	}

	q := u.Query()
	q.Set("entity", string(entity))
	if filter != "" {
		q.Set("filter", filter)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	return &wsChannel{conn: conn}, nil
}

type wsChannel struct {
	conn *websocket.Conn
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close()
}
