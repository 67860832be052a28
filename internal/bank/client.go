// Package bank loads the external question catalog and builds question sets
// from it.
package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
)

// ErrFetch wraps every failure to load a bank source.
var ErrFetch = errors.New("bank: fetch failed")

const maxParallelFetches = 4

// Client reads bank files from http(s) URLs or local paths.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// NewClientWithHTTP uses hc as is. Tests pass httptest clients here.
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (c *Client) open(ctx context.Context, source string) (io.ReadCloser, error) {
	log := logger.FromContext(ctx).WithPrefix("bank").WithField("source", source)

	if !isRemote(source) {
		f, err := os.Open(strings.TrimPrefix(source, "file://"))
		if err != nil {
			log.Error("failed to open bank file: %v", err)
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, source, err)
		}
		return f, nil
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, source, err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("failed to fetch bank: %v", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, source, err)
	}
	log.Debug("bank response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		log.Error("bank request failed: status=%d, body=%s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, source, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) decode(ctx context.Context, source string, dst any) error {
	rc, err := c.open(ctx, source)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(dst); err != nil {
		logger.FromContext(ctx).WithPrefix("bank").WithField("source", source).Error("failed to decode bank: %v", err)
		return fmt.Errorf("%w: %s: %v", ErrFetch, source, err)
	}
	return nil
}

// Fetch loads one bank file, a JSON array of questions.
func (c *Client) Fetch(ctx context.Context, source string) ([]models.RawQuestion, error) {
	var out []models.RawQuestion
	if err := c.decode(ctx, source, &out); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithPrefix("bank").Info("fetched %d questions from %s", len(out), source)
	return out, nil
}

// FetchAll loads every source concurrently and concatenates the results in
// source order. Any failure fails the whole call.
func (c *Client) FetchAll(ctx context.Context, sources []string) ([]models.RawQuestion, error) {
	results := make([][]models.RawQuestion, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			qs, err := c.Fetch(gctx, src)
			if err != nil {
				return err
			}
			results[i] = qs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.RawQuestion
	for _, qs := range results {
		all = append(all, qs...)
	}
	return all, nil
}

// FetchBlueprint loads an exam blueprint document.
func (c *Client) FetchBlueprint(ctx context.Context, source string) (*models.Blueprint, error) {
	var bp models.Blueprint
	if err := c.decode(ctx, source, &bp); err != nil {
		return nil, err
	}
	return &bp, nil
}
