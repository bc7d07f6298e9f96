package v1version

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hasura/graphql-engine/console/internal/errors"
	"github.com/hasura/graphql-engine/console/internal/hasura"
	"github.com/hasura/graphql-engine/console/internal/httpc"
)

type Client struct {
	*httpc.Client
	path string
}

func New(client *httpc.Client, path string) *Client {
	return &Client{client, path}
}

func (c *Client) GetVersion(ctx context.Context) (*hasura.V1VersionResponse, error) {
	var op errors.Op = "v1version.Client.GetVersion"
	req, err := c.NewRequest(http.MethodGet, c.path, nil)
	if err != nil {
		return nil, errors.E(op, err)
	}
	b := new(bytes.Buffer)
	resp, err := c.Do(ctx, req, b)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		if b.Len() > 0 {
			return nil, errors.E(op, errors.KindHasuraAPI, hasura.ParseAPIError(resp.StatusCode, b.Bytes()))
		}
		return nil, errors.E(op, errors.KindHasuraAPI, fmt.Errorf("API request to %v failed, code: %v", c.path, resp.StatusCode))
	}
	o := new(hasura.V1VersionResponse)
	if err := json.NewDecoder(b).Decode(o); err != nil {
		return nil, errors.E(op, errors.KindInternal, fmt.Errorf("decoding API response failed for: %v", c.path))
	}
	return o, nil
}
