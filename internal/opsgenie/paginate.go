package opsgenie

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	apperrors "oncall-roster-audit/internal/errors"
)

// fetchPaged drives a listing endpoint across offset pages until a short page
// signals exhaustion. A failing page stops the loop and returns everything
// accumulated so far together with the error, so callers can use partial
// results without mistaking them for a complete listing. The offset safeguard
// bounds the loop against an endpoint that keeps returning full pages.
func (c *Client) fetchPaged(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	var items []json.RawMessage

	for offset := 0; offset <= c.maxOffset; offset += c.pageLimit {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("limit", strconv.Itoa(c.pageLimit))
		q.Set("offset", strconv.Itoa(offset))

		respBody, err := c.do(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return items, err
		}

		var envelope struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return items, apperrors.NewMalformedResponseError("data")
		}

		items = append(items, envelope.Data...)
		if len(envelope.Data) < c.pageLimit {
			return items, nil
		}
	}

	return items, fmt.Errorf("pagination aborted for %s: offset safeguard %d reached", path, c.maxOffset)
}
