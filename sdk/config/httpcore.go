// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RESTCore is the small JSON-over-HTTP client shared by the tracking and
// scoring calls.
type RESTCore interface {
	BuildURL(path string, params map[string]string) string
	Do(ctx context.Context, method, url string, data []byte) ([]byte, int, error)
}

// RESTAuth carries the optional credentials attached to every request.
// Token wins over basic auth when both are set.
type RESTAuth struct {
	Token    string
	Username string
	Password string
}

type restCore struct {
	httpClient *http.Client
	baseURL    string
	auth       RESTAuth
}

func NewRESTCore(httpClient *http.Client, baseURL string, auth RESTAuth) RESTCore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &restCore{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		auth:       auth,
	}
}

func (c *restCore) BuildURL(path string, params map[string]string) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")

	q := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *restCore) Do(ctx context.Context, method, url string, data []byte) ([]byte, int, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch {
	case c.auth.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	case c.auth.Username != "":
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	b, rerr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return b, resp.StatusCode, responseError(resp.Status, b)
	}
	return b, resp.StatusCode, rerr
}

// responseError surfaces the server's error_code/message pair when the body
// carries one.
func responseError(status string, body []byte) error {
	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		msg, _ := m["message"].(string)
		code, _ := m["error_code"].(string)
		switch {
		case code != "" && msg != "":
			return fmt.Errorf("server responded with: %s - %s: %s", status, code, msg)
		case msg != "":
			return fmt.Errorf("server responded with: %s - %s", status, msg)
		}
	}
	return fmt.Errorf("server responded with: %s", status)
}
