// Package httpc is the JSON over HTTP client every engine API client is
// built on.
package httpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

const DefaultUserAgent = "hge-console"

type Client struct {
	client *http.Client

	// Mutex serialises LockAndDo calls, metadata mutations must not
	// interleave on the engine.
	Mutex     sync.Mutex
	BaseURL   *url.URL
	UserAgent string

	headersMu sync.RWMutex
	headers   map[string]string
}

func New(httpClient *http.Client, baseURL string, headers map[string]string) (*Client, error) {
	var op errors.Op = "httpc.New"
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, errors.E(op, errors.KindBadInput, err)
	}
	if httpClient == nil {
		httpClient = new(http.Client)
	}
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &Client{
		client:    httpClient,
		BaseURL:   u,
		UserAgent: DefaultUserAgent,
		headers:   h,
	}, nil
}

func (c *Client) SetHeaders(headers map[string]string) {
	c.headersMu.Lock()
	defer c.headersMu.Unlock()
	c.headers = headers
}

func (c *Client) SetHeader(key, value string) {
	c.headersMu.Lock()
	defer c.headersMu.Unlock()
	if c.headers == nil {
		c.headers = map[string]string{}
	}
	c.headers[key] = value
}

// NewRequest resolves urlStr against BaseURL and JSON encodes body without
// HTML escaping, GraphQL documents in payloads must survive untouched.
func (c *Client) NewRequest(method, urlStr string, body interface{}) (*http.Request, error) {
	var op errors.Op = "httpc.Client.NewRequest"
	u, err := c.BaseURL.Parse(urlStr)
	if err != nil {
		return nil, errors.E(op, errors.KindBadInput, err)
	}

	var buf io.ReadWriter
	if body != nil {
		buf = &bytes.Buffer{}
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(body); err != nil {
			return nil, errors.E(op, errors.KindInternal, err)
		}
	}

	req, err := http.NewRequest(method, u.String(), buf)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	c.headersMu.RLock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	c.headersMu.RUnlock()
	return req, nil
}

type Response struct {
	*http.Response
}

func (c *Client) BareDo(ctx context.Context, req *http.Request) (*Response, error) {
	var op errors.Op = "httpc.Client.BareDo"
	if ctx == nil {
		return nil, errors.E(op, errors.KindInternal, "context must be non-nil")
	}
	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		// a cancelled context explains the failure better than the transport error
		select {
		case <-ctx.Done():
			return nil, errors.E(op, errors.KindNetwork, ctx.Err())
		default:
		}
		return nil, errors.E(op, errors.KindNetwork, err)
	}
	return &Response{resp}, nil
}

func (c *Client) LockAndDo(ctx context.Context, req *http.Request, v interface{}) (*Response, error) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	return c.Do(ctx, req, v)
}

// Do sends req and decodes the response into v. An io.Writer receives the
// raw body, JSON bodies are indented first. Any other non nil v is the
// target of a JSON decode.
func (c *Client) Do(ctx context.Context, req *http.Request, v interface{}) (*Response, error) {
	var op errors.Op = "httpc.Client.Do"
	resp, err := c.BareDo(ctx, req)
	if err != nil {
		return resp, errors.E(op, err)
	}
	defer resp.Body.Close()

	switch v := v.(type) {
	case nil:
	case io.Writer:
		if !hasJSONContentType(resp.Header) {
			if _, err := io.Copy(v, resp.Body); err != nil {
				return resp, errors.E(op, err)
			}
			return resp, nil
		}
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp, errors.E(op, errors.KindNetwork, err)
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			// not actually JSON, hand it over as is
			buf.Reset()
			buf.Write(raw)
		}
		if _, err := io.Copy(v, &buf); err != nil {
			return resp, errors.E(op, err)
		}
	default:
		decErr := json.NewDecoder(resp.Body).Decode(v)
		if decErr == io.EOF {
			decErr = nil // empty body
		}
		if decErr != nil {
			return resp, errors.E(op, errors.KindInternal, fmt.Errorf("decoding response: %w", decErr))
		}
	}
	return resp, nil
}

func hasJSONContentType(headers http.Header) bool {
	return strings.Contains(headers.Get("Content-Type"), "application/json")
}

func GenerateTLSConfig(caPath string, insecureSkipTLSVerify bool) (*tls.Config, error) {
	var op errors.Op = "httpc.GenerateTLSConfig"
	tlsConfig := &tls.Config{InsecureSkipVerify: insecureSkipTLSVerify} // #nosec G402
	if caPath == "" {
		return tlsConfig, nil
	}
	rootCAs, _ := x509.SystemCertPool()
	if rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}
	certPath, _ := filepath.Abs(caPath)
	cert, err := os.ReadFile(certPath)
	if err != nil {
		return nil, errors.E(op, errors.KindBadInput, fmt.Errorf("error reading CA %s: %w", caPath, err))
	}
	if ok := rootCAs.AppendCertsFromPEM(cert); !ok {
		return nil, errors.E(op, errors.KindBadInput, "unable to append given CA cert")
	}
	tlsConfig.RootCAs = rootCAs
	return tlsConfig, nil
}

func NewHTTPClientWithTLSConfig(tlsConfig *tls.Config) *http.Client {
	tr := &http.Transport{TLSClientConfig: tlsConfig, Proxy: http.ProxyFromEnvironment}
	return &http.Client{Transport: tr}
}
