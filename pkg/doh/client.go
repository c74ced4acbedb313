// Package doh provides a DNS-over-HTTPS client for MX record lookups,
// backed by the Google Public DNS JSON API.
package doh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the DNS-over-HTTPS operations used by the provider classifier.
type Client interface {
	// LookupMX resolves the MX hostnames for a domain. A domain with no MX
	// records yields an empty slice and a nil error; transport and payload
	// problems yield an error.
	LookupMX(ctx context.Context, domain string) ([]string, error)
}

// dnsResponse is the Google DNS JSON API payload, reduced to what we read.
type dnsResponse struct {
	Status int         `json:"Status"`
	Answer []dnsAnswer `json:"Answer"`
}

type dnsAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	Data string `json:"data"`
}

// RR type code for MX records.
const typeMX = 15

// DNS RCODEs we treat as an authoritative "no records" answer.
const (
	rcodeNoError  = 0
	rcodeNXDomain = 3
)

// Option configures the DoH client.
type Option func(*httpClient)

// WithBaseURL sets a custom resolver endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a DoH client against dns.google with a short timeout.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://dns.google/resolve",
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) LookupMX(ctx context.Context, domain string) ([]string, error) {
	reqURL := fmt.Sprintf("%s?name=%s&type=MX", c.baseURL, url.QueryEscape(domain))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "doh: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "doh: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "doh: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("doh: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result dnsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "doh: unmarshal response")
	}

	switch result.Status {
	case rcodeNoError, rcodeNXDomain:
	default:
		return nil, eris.Errorf("doh: resolver returned rcode %d for %s", result.Status, domain)
	}

	var hosts []string
	for _, ans := range result.Answer {
		if ans.Type != typeMX {
			continue
		}
		if host := ParseMXData(ans.Data); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts, nil
}

// ParseMXData extracts the exchange hostname from an MX record's data field,
// which arrives as "<preference> <host>." (e.g. "10 aspmx.l.google.com.").
func ParseMXData(data string) string {
	fields := strings.Fields(data)
	if len(fields) == 0 {
		return ""
	}
	host := fields[len(fields)-1]
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
