package youtube

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	apperrors "github.com/nijaru/yt-adwatch/errors"
	"github.com/nijaru/yt-adwatch/keywords"
	"github.com/nijaru/yt-adwatch/models"
)

const DefaultMaxResults = 20

type Config struct {
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	HTTPTimeout       time.Duration
	// Endpoint overrides the API base URL; tests point it at httptest.
	Endpoint string
}

// Detail is the subset of videos.list output the crawler needs.
type Detail struct {
	Title        string
	Description  string
	ChannelTitle string
	PublishedAt  string
	ViewCount    uint64
}

type Client struct {
	service *ytapi.Service
	limiter *rate.Limiter
	timeout time.Duration
	ads     *keywords.Matcher
}

func NewClient(ctx context.Context, cfg Config, ads *keywords.Matcher) (*Client, error) {
	const op = "youtube.NewClient"

	if cfg.APIKey == "" {
		return nil, apperrors.Config(op, nil, "YouTube API key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.Search(op, err, "failed to create YouTube service")
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		service: service,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		timeout: cfg.HTTPTimeout,
		ads:     ads,
	}, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "rate limiter")
	}
	if c.timeout > 0 {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		return callCtx, cancel, nil
	}
	return ctx, func() {}, nil
}

// Search returns IDs of videos matching keyword, newest first, published at
// or after publishedAfter (RFC 3339).
func (c *Client) Search(ctx context.Context, keyword, publishedAfter string, maxResults int64) ([]string, error) {
	const op = "youtube.Search"

	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, apperrors.Search(op, err, "search cancelled")
	}
	defer cancel()

	resp, err := c.service.Search.List([]string{"id", "snippet"}).
		Q(keyword).
		Type("video").
		Order("date").
		PublishedAfter(publishedAfter).
		MaxResults(maxResults).
		Context(callCtx).
		Do()
	if err != nil {
		return nil, apperrors.Search(op, errors.Wrapf(err, "search.list q=%s", keyword), "search request failed")
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		ids = append(ids, item.Id.VideoId)
	}
	return ids, nil
}

// Details fetches snippet and statistics for one video. ok is false when the
// API returns no items for the ID.
func (c *Client) Details(ctx context.Context, videoID string) (*Detail, bool, error) {
	const op = "youtube.Details"

	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, false, apperrors.Search(op, err, "detail lookup cancelled")
	}
	defer cancel()

	resp, err := c.service.Videos.List([]string{"snippet", "statistics"}).
		Id(videoID).
		Context(callCtx).
		Do()
	if err != nil {
		return nil, false, apperrors.Search(op, errors.Wrapf(err, "videos.list id=%s", videoID), "detail request failed")
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, false, nil
	}

	v := resp.Items[0]
	d := &Detail{
		Title:        v.Snippet.Title,
		Description:  v.Snippet.Description,
		ChannelTitle: v.Snippet.ChannelTitle,
		PublishedAt:  v.Snippet.PublishedAt,
	}
	if v.Statistics != nil {
		d.ViewCount = v.Statistics.ViewCount
	}
	return d, true, nil
}

// Crawl searches for keyword and resolves every hit into a tagged video.
// Hits without details are dropped; any API error aborts the crawl.
func (c *Client) Crawl(ctx context.Context, keyword, publishedAfter string, maxResults int64) ([]*models.Video, error) {
	const op = "youtube.Crawl"
	logger := logrus.WithFields(logrus.Fields{
		"op":      op,
		"keyword": keyword,
	})

	ids, err := c.Search(ctx, keyword, publishedAfter, maxResults)
	if err != nil {
		return nil, err
	}
	logger.WithField("hits", len(ids)).Debug("Search completed")

	videos := make([]*models.Video, 0, len(ids))
	for _, id := range ids {
		detail, ok, err := c.Details(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.WithField("video_id", id).Debug("No details returned, skipping")
			continue
		}

		published, err := models.PublishedDate(detail.PublishedAt)
		if err != nil {
			return nil, apperrors.Search(op, errors.Wrapf(err, "video %s", id), "invalid publish timestamp")
		}

		videos = append(videos, &models.Video{
			Keyword:       keyword,
			VideoID:       id,
			Title:         detail.Title,
			Description:   detail.Description,
			ChannelName:   detail.ChannelTitle,
			PublishedDate: published,
			ViewCount:     detail.ViewCount,
			URL:           models.WatchURL(id),
			IsAd:          c.ads.IsAd(detail.Title, detail.Description),
		})
	}

	logger.WithField("videos", len(videos)).Info("Crawl completed")
	return videos, nil
}
