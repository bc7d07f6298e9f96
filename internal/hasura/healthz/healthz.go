// Package healthz asks the engine's /healthz endpoint whether it is up.
package healthz

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/parnurzeal/gorequest"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

const DefaultTimeout = 5 * time.Second

// Status is what /healthz answered. The engine answers 200 with a
// warning when some metadata objects are inconsistent.
type Status struct {
	Healthy bool
	Message string
}

type Client struct {
	// url is the full /healthz url.
	url     string
	tls     *tls.Config
	timeout time.Duration
}

// New builds a client for the engine at baseURL, which ends with a slash.
func New(baseURL string, tlsConfig *tls.Config) *Client {
	return &Client{url: baseURL + "healthz", tls: tlsConfig, timeout: DefaultTimeout}
}

func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

func (c *Client) Check() (*Status, error) {
	var op errors.Op = "healthz.Client.Check"
	req := gorequest.New().Timeout(c.timeout)
	if c.tls != nil {
		req.TLSClientConfig(c.tls)
	}
	resp, body, errs := req.Get(c.url).End()
	if len(errs) != 0 {
		return nil, errors.E(op, errors.KindNetwork, fmt.Errorf("health check of %s failed: %w", c.url, errs[0]))
	}
	message := strings.TrimSpace(body)
	switch resp.StatusCode {
	case http.StatusOK:
		return &Status{Healthy: true, Message: message}, nil
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return &Status{Healthy: false, Message: message}, nil
	default:
		return nil, errors.E(op, errors.KindHasuraAPI, fmt.Errorf("health check of %s: unexpected status %d", c.url, resp.StatusCode))
	}
}
