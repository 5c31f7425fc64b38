package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"stagehand/internal/api"
	"stagehand/internal/pubsub"
)

// Events fetches one page of notifier history after since. topic may be
// empty for every topic. With follow set the server holds the request until
// an event arrives or its wait window closes.
func (c *Client) Events(ctx context.Context, topic pubsub.Topic, since uint64, limit int, follow bool) (*api.EventsResponse, error) {
	q := url.Values{}
	if topic != "" {
		q.Set("topic", string(topic))
	}
	if since > 0 {
		q.Set("since", strconv.FormatUint(since, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if follow {
		q.Set("follow", "1")
	}
	var out api.EventsResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/events", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Watch streams a topic over a websocket and calls fn for each event until
// ctx ends, the server closes the stream, or fn returns an error.
func (c *Client) Watch(ctx context.Context, topic pubsub.Topic, fn func(pubsub.Event) error) error {
	u := *c.base
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/api/subscriptions/" + subscriptionPath(topic)

	header := http.Header{}
	if c.userID != "" {
		header.Set("X-User-ID", c.userID)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("subscribe %s: server returned %d", topic, resp.StatusCode)
		}
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var evt pubsub.Event
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read %s event: %w", topic, err)
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}

func subscriptionPath(topic pubsub.Topic) string {
	if topic == pubsub.TopicPositionRecord {
		return "positionRecord"
	}
	return "positionMap"
}
