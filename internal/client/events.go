package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JaimeStill/microtravel/internal/batch"
)

// ErrStreamEnded indicates the event stream closed before a terminal snapshot.
var ErrStreamEnded = errors.New("progress stream ended before batch finished")

// Events follows a batch's progress stream and calls fn for every snapshot.
// It returns the terminal snapshot, or ErrStreamEnded if the server closes
// the stream first.
func (c *Client) Events(ctx context.Context, id string, fn func(batch.Progress)) (*batch.Progress, error) {
	path := "/batches/" + url.PathEscape(id) + "/events"

	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			var p batch.Progress
			if err := json.Unmarshal([]byte(data.String()), &p); err != nil {
				return nil, fmt.Errorf("%w: decode progress event: %w", batch.ErrPayload, err)
			}
			data.Reset()

			if fn != nil {
				fn(p)
			}
			if p.Terminal() {
				return &p, nil
			}
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", batch.ErrNetwork, err)
	}
	return nil, ErrStreamEnded
}
