// Package catalog talks to the remote trainer catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
	"github.com/xinggaoya/GameModMaster/pkg/model"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "gmm/1.0"

// maxResponseSize bounds how much of a catalog response is read.
const maxResponseSize = 16 << 20

// HTTPClient is a JSON client for the catalog API.
type HTTPClient struct {
	client    *http.Client
	baseURL   *url.URL
	userAgent string
}

var _ Catalog = (*HTTPClient)(nil)

// NewHTTPClient creates a catalog client rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, userAgent string) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Newf(errors.Config, "invalid catalog url %q", baseURL)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		baseURL:   parsed,
		userAgent: userAgent,
	}, nil
}

// FetchListing implements Catalog.
func (hc *HTTPClient) FetchListing(ctx context.Context, page int) (model.Page, error) {
	if page < 1 {
		return model.Page{}, errors.Newf(errors.Validation, "page must be at least 1, got %d", page)
	}
	var out model.Page
	err := hc.getJSON(ctx, "listing", []string{"trainers"}, url.Values{"page": {strconv.Itoa(page)}}, &out)
	return out, err
}

// Search implements Catalog.
func (hc *HTTPClient) Search(ctx context.Context, query string, page int) (model.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.Page{}, errors.New(errors.Validation, "search query cannot be empty")
	}
	if page < 1 {
		return model.Page{}, errors.Newf(errors.Validation, "page must be at least 1, got %d", page)
	}
	var out model.Page
	err := hc.getJSON(ctx, "search", []string{"search"}, url.Values{"q": {query}, "page": {strconv.Itoa(page)}}, &out)
	return out, err
}

// FetchDetail implements Catalog.
func (hc *HTTPClient) FetchDetail(ctx context.Context, id string) (model.Trainer, error) {
	if id == "" {
		return model.Trainer{}, errors.New(errors.Validation, "trainer id cannot be empty")
	}
	var out model.Trainer
	if err := hc.getJSON(ctx, "detail "+id, []string{"trainers", id}, nil, &out); err != nil {
		return model.Trainer{}, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return out, nil
}

func (hc *HTTPClient) buildURL(segments []string, query url.Values) string {
	u := *hc.baseURL
	u.Path = strings.TrimRight(u.Path, "/")
	for _, s := range segments {
		u.Path += "/" + s
	}
	u.RawPath = ""
	u.RawQuery = query.Encode()
	return u.String()
}

func (hc *HTTPClient) getJSON(ctx context.Context, op string, segments []string, query url.Values, dest interface{}) error {
	target := hc.buildURL(segments, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return errors.E(errors.Validation, op, err)
	}
	req.Header.Set("User-Agent", hc.userAgent)
	req.Header.Set("Accept", "application/json")

	logger.Debug("Catalog request", logger.Fields{"url": target})
	resp, err := hc.client.Do(req)
	if err != nil {
		return errors.E(errors.Network, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound && len(segments) > 1:
		return &errors.Error{Kind: errors.NotFound, Op: op, Detail: "trainer " + segments[len(segments)-1], Err: errors.ErrTrainerNotFound}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &errors.Error{Kind: errors.Network, Op: op, Detail: fmt.Sprintf("unexpected status code: %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.E(errors.Network, op, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.E(errors.Parse, op, err)
	}
	return nil
}
