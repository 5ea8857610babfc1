package itunes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const DefaultBaseURL = "https://itunes.apple.com/search"

// Result is the best matching track for a search term.
type Result struct {
	Artist     string `json:"artistName"`
	ArtworkURL string `json:"artworkUrl100"`
	TrackName  string `json:"trackName"`
	AlbumName  string `json:"collectionName"`
	PreviewURL string `json:"previewUrl"`
}

// Title formats the result for display, e.g. "Hey Jude by The Beatles".
func (r *Result) Title() string {
	switch {
	case r.TrackName != "" && r.Artist != "":
		return r.TrackName + " by " + r.Artist
	case r.TrackName != "":
		return r.TrackName
	default:
		return r.Artist
	}
}

type searchResponse struct {
	ResultCount int      `json:"resultCount"`
	Results     []Result `json:"results"`
}

type Client struct {
	baseURL    string
	country    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithCountry restricts the search to one storefront (two-letter country code).
func WithCountry(cc string) Option {
	return func(c *Client) { c.country = cc }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindSong returns the top song matching term, or nil when nothing matches.
func (c *Client) FindSong(ctx context.Context, term string) (*Result, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("empty search term")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("term", term)
	q.Set("entity", "song")
	q.Set("limit", strconv.Itoa(1))
	if c.country != "" {
		q.Set("country", c.country)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("itunes search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("itunes api error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(result.Results) == 0 {
		return nil, nil
	}
	return &result.Results[0], nil
}
