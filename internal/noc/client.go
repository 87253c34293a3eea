// SPDX-FileCopyrightText: 2025 Argus contributors
//
// SPDX-License-Identifier: Apache-2.0

package noc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"

	mapi "github.com/kataniwayou/argus/api/monitor"
)

// Client posts payloads to the NOC send and verify endpoints. It supports
// HTTP basic auth, disabled certificate validation and a fixed connect address
// which bypasses DNS resolution.
type Client struct {
	httpClient *http.Client
	config     mapi.NocHttpClientConfig
	logger     logr.Logger
}

// NewClient creates a NOC client from the http client configuration.
func NewClient(config mapi.NocHttpClientConfig, logger logr.Logger) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: config.BypassSslValidation},
	}
	if config.ConnectIpAddress != "" {
		connectAddr := net.JoinHostPort(config.ConnectIpAddress, strconv.Itoa(config.ConnectPort))
		dialer := &net.Dialer{}
		transport.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, connectAddr)
		}
	}
	timeout := 30
	if config.TimeoutSeconds != nil {
		timeout = *config.TimeoutSeconds
	}
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(timeout) * time.Second,
		},
		config: config,
		logger: logger.WithName("noc-client"),
	}
}

// Send posts the payload to the send endpoint. HTTP 200 and 204 are the only
// success outcomes.
func (c *Client) Send(ctx context.Context, payload *mapi.NocPayload) error {
	resp, err := c.post(ctx, c.config.SendEndpoint, payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("NOC send returned status %d", resp.StatusCode)
	}
	return nil
}

// Verify posts the filter to the verify endpoint and decodes the single
// payload object the NOC returns for a known suppression key.
func (c *Client) Verify(ctx context.Context, filter *mapi.NocVerifyFilter) (*mapi.NocPayload, error) {
	resp, err := c.post(ctx, c.config.VerifyEndpoint, filter)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NOC verify returned status %d", resp.StatusCode)
	}
	received := &mapi.NocPayload{}
	if err := json.NewDecoder(resp.Body).Decode(received); err != nil {
		return nil, fmt.Errorf("failed to decode NOC verify response: %w", err)
	}
	return received, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal NOC request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build NOC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}
	return c.httpClient.Do(req)
}
