package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultYouTubeAPIBase = "https://www.googleapis.com/youtube/v3"
	statsBatchSize        = 50
	statsCacheSize        = 4096
)

var ErrInvalidVideoURL = errors.New("invalid video URL")

// VideoStats is one video's public counters at a point in time.
type VideoStats struct {
	Views int64
	Likes int64
}

// StatsProvider fetches public stats for a set of video ids. Missing ids are
// absent from the result map rather than errors: deleted and private videos
// are normal.
type StatsProvider interface {
	FetchStats(ctx context.Context, videoIDs []string) (map[string]VideoStats, error)
}

// YouTubeService implements StatsProvider against the YouTube Data API. A
// token bucket throttles requests and an LRU keeps last-known stats so a
// transient API failure does not zero out a video's counters.
type YouTubeService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *lru.Cache
}

func NewYouTubeService(apiKey string, rps float64) *YouTubeService {
	if rps <= 0 {
		rps = 4
	}
	cache, _ := lru.New(statsCacheSize)
	return &YouTubeService{
		apiKey:     apiKey,
		baseURL:    defaultYouTubeAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		cache:      cache,
	}
}

// WithBaseURL points the service at a different API endpoint. Used in tests.
func (s *YouTubeService) WithBaseURL(base string) *YouTubeService {
	s.baseURL = strings.TrimSuffix(base, "/")
	return s
}

type videoListResponse struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// FetchStats resolves stats for up to thousands of ids by fanning out
// batched API calls. Each batch waits on the shared rate limiter.
func (s *YouTubeService) FetchStats(ctx context.Context, videoIDs []string) (map[string]VideoStats, error) {
	results := make(map[string]VideoStats, len(videoIDs))
	if len(videoIDs) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(videoIDs); start += statsBatchSize {
		end := start + statsBatchSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}
		batch := videoIDs[start:end]

		g.Go(func() error {
			stats, err := s.fetchBatch(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, st := range stats {
				results[id] = st
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Fill gaps from the last-known cache and remember fresh values.
	for _, id := range videoIDs {
		if st, ok := results[id]; ok {
			s.cache.Add(id, st)
			continue
		}
		if cached, ok := s.cache.Get(id); ok {
			results[id] = cached.(VideoStats)
		}
	}
	return results, nil
}

func (s *YouTubeService) fetchBatch(ctx context.Context, ids []string) (map[string]VideoStats, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/videos?part=statistics&id=%s&key=%s",
		s.baseURL, url.QueryEscape(strings.Join(ids, ",")), url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stats request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video stats request returned %d", resp.StatusCode)
	}

	var payload videoListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode stats response: %w", err)
	}

	stats := make(map[string]VideoStats, len(payload.Items))
	for _, item := range payload.Items {
		views, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
		likes, _ := strconv.ParseInt(item.Statistics.LikeCount, 10, 64)
		stats[item.ID] = VideoStats{Views: views, Likes: likes}
	}
	return stats, nil
}

// ExtractVideoID validates a submitted video URL and pulls out the id.
// Accepted hosts are youtube.com (watch, shorts, embed paths) and youtu.be.
func ExtractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", ErrInvalidVideoURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidVideoURL
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		if id == "" || strings.Contains(id, "/") {
			return "", ErrInvalidVideoURL
		}
		return id, nil
	case "youtube.com", "m.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
				if id != "" && !strings.Contains(id, "/") {
					return id, nil
				}
			}
		}
		return "", ErrInvalidVideoURL
	default:
		return "", ErrInvalidVideoURL
	}
}
