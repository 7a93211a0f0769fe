// Package tmdb is a small client for the parts of The Movie Database API
// needed to walk actor collaborations: person search, movie credits,
// movie cast and movie details.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/alvmarrod/actor-weaver/internal/cache"
	"github.com/alvmarrod/actor-weaver/internal/config"
	"github.com/alvmarrod/actor-weaver/internal/version"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	// ErrNotFound is returned when the provider has no matching record
	ErrNotFound = errors.New("not found")
	// ErrMalformedResponse is returned when a payload cannot be decoded
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is an HTTP failure reported by the provider
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	return fmt.Sprintf("request failed with status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Is lets a 404 match ErrNotFound
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// transient reports whether a retry may succeed
func (e *StatusError) transient() bool {
	return e.Code == 0 || e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client queries the provider through a colly collector
type Client struct {
	cfg       *config.Config
	baseURL   *url.URL
	collector *colly.Collector
	limiter   *rate.Limiter
	cache     *cache.Cache
	log       *logrus.Entry
}

// NewClient creates a client. c may be nil to disable response caching.
func NewClient(cfg *config.Config, c *cache.Cache) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.APIBaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	collector := colly.NewCollector(
		colly.UserAgent("actor-weaver/"+version.Version),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	collector.SetRequestTimeout(cfg.RequestTimeout())

	// Limit parallelism
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.ConcurrentWorkers,
	}); err != nil {
		return nil, fmt.Errorf("failed to set request limits: %w", err)
	}

	return &Client{
		cfg:       cfg,
		baseURL:   base,
		collector: collector,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.ConcurrentWorkers),
		cache:     c,
		log:       logrus.WithField("component", "tmdb"),
	}, nil
}

// SearchActor returns the best match for name, or ErrNotFound
func (c *Client) SearchActor(ctx context.Context, name string) (*Actor, error) {
	query := url.Values{}
	query.Set("query", name)
	query.Set("include_adult", "false")

	var resp searchResponse
	if err := c.getJSON(ctx, "/search/person", query, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", name, err)
	}

	for _, actor := range resp.Results {
		if actor.ID != 0 {
			return &actor, nil
		}
	}
	return nil, fmt.Errorf("search %q: %w", name, ErrNotFound)
}

// MovieCredits returns the movies an actor appeared in as cast, in provider order
func (c *Client) MovieCredits(ctx context.Context, actorID int) ([]MovieCredit, error) {
	var resp movieCreditsResponse
	if err := c.getJSON(ctx, "/person/"+strconv.Itoa(actorID)+"/movie_credits", nil, &resp); err != nil {
		return nil, fmt.Errorf("movie credits for actor %d: %w", actorID, err)
	}

	credits := make([]MovieCredit, 0, len(resp.Cast))
	for _, credit := range resp.Cast {
		if credit.ID == 0 {
			continue
		}
		credits = append(credits, credit)
	}
	return credits, nil
}

// MovieCast returns the billed cast of a movie, in provider order
func (c *Client) MovieCast(ctx context.Context, movieID int) ([]CastMember, error) {
	var resp castResponse
	if err := c.getJSON(ctx, "/movie/"+strconv.Itoa(movieID)+"/credits", nil, &resp); err != nil {
		return nil, fmt.Errorf("cast for movie %d: %w", movieID, err)
	}

	cast := make([]CastMember, 0, len(resp.Cast))
	for _, member := range resp.Cast {
		if member.ID == 0 {
			continue
		}
		cast = append(cast, member)
	}
	return cast, nil
}

// MovieTitle returns the title of a movie
func (c *Client) MovieTitle(ctx context.Context, movieID int) (string, error) {
	var resp movieResponse
	if err := c.getJSON(ctx, "/movie/"+strconv.Itoa(movieID), nil, &resp); err != nil {
		return "", fmt.Errorf("details for movie %d: %w", movieID, err)
	}
	if resp.Title == "" {
		return "", fmt.Errorf("details for movie %d: %w", movieID, ErrMalformedResponse)
	}
	return resp.Title, nil
}

// ImageURL turns a profile path into an absolute image URL
func (c *Client) ImageURL(profilePath string) string {
	if profilePath == "" {
		return ""
	}
	return strings.TrimRight(c.cfg.ImageBaseURL, "/") + "/" + strings.TrimLeft(profilePath, "/")
}

// getJSON fetches endpoint through the cache and decodes it into out
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("language", c.cfg.Language)

	// The cache key never carries the api key
	key := endpoint + "?" + query.Encode()

	body, err := c.cache.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		body, err := c.fetchWithRetry(ctx, endpoint, query)
		if err != nil {
			return nil, err
		}
		// Undecodable payloads are returned as errors so they never reach the store.
		// The fetch may outlive this caller, so it decodes into its own value.
		check := reflect.New(reflect.TypeOf(out).Elem()).Interface()
		if err := json.Unmarshal(body, check); err != nil {
			return nil, c.malformed(endpoint, err)
		}
		return body, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return c.malformed(endpoint, err)
	}
	return nil
}

func (c *Client) malformed(endpoint string, err error) error {
	c.log.WithField("endpoint", endpoint).Warnf("Undecodable payload: %v", err)
	return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
}

// fetchWithRetry performs the request, retrying transient failures
func (c *Client) fetchWithRetry(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + endpoint
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("api_key", c.cfg.APIKey)
	u.RawQuery = q.Encode()
	target := u.String()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelay()):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.fetch(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var statusErr *StatusError
		if ctx.Err() != nil || !errors.As(err, &statusErr) || !statusErr.transient() {
			return nil, err
		}
		c.log.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  attempt + 1,
		}).Debugf("Transient failure: %v", err)
	}

	return nil, lastErr
}

// fetch runs a single GET on a cloned collector bound to ctx
func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	collector := c.collector.Clone()
	collector.Context = ctx

	var body []byte
	var status int

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
	})

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := collector.Visit(target); err != nil {
		return nil, &StatusError{Code: status, Err: err}
	}
	return body, nil
}
