package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
)

const defaultSuggestBase = "https://suggestqueries.google.com/complete/search"

// SuggestProvider expands a seed keyword into related search phrases.
type SuggestProvider interface {
	Suggest(ctx context.Context, keyword string) ([]string, error)
}

// SuggestService queries the public Google suggest endpoint.
type SuggestService struct {
	baseURL    string
	httpClient *http.Client
}

func NewSuggestService() *SuggestService {
	return &SuggestService{
		baseURL:    defaultSuggestBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the service at a different endpoint. Used in tests.
func (s *SuggestService) WithBaseURL(base string) *SuggestService {
	s.baseURL = strings.TrimSuffix(base, "/")
	return s
}

func (s *SuggestService) Suggest(ctx context.Context, keyword string) ([]string, error) {
	endpoint := fmt.Sprintf("%s?client=firefox&q=%s", s.baseURL, url.QueryEscape(keyword))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build suggest request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch suggestions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggest request returned %d", resp.StatusCode)
	}

	// Response shape: [query, [suggestion, ...], ...]
	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode suggest response: %w", err)
	}
	if len(payload) < 2 {
		return nil, nil
	}

	var suggestions []string
	if err := json.Unmarshal(payload[1], &suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode suggestion list: %w", err)
	}
	return suggestions, nil
}

// GenerateBatchRequest describes one metadata batch to produce.
type GenerateBatchRequest struct {
	SeedKeyword  string
	TitleCount   int
	SuggestCount int
	DescLength   int
	ReuseLimit   int
}

// BatchService turns a seed keyword into a stored batch of claimable
// title/description/tags items.
type BatchService struct {
	batches  repositories.BatchRepository
	suggests SuggestProvider
}

func NewBatchService(batches repositories.BatchRepository, suggests SuggestProvider) *BatchService {
	return &BatchService{batches: batches, suggests: suggests}
}

func (s *BatchService) GenerateBatch(ctx context.Context, req GenerateBatchRequest) (*models.FileBatch, error) {
	keyword := strings.TrimSpace(req.SeedKeyword)
	if keyword == "" {
		return nil, fmt.Errorf("seed keyword is required")
	}
	if req.TitleCount <= 0 {
		req.TitleCount = 10
	}
	if req.SuggestCount <= 0 {
		req.SuggestCount = 10
	}
	if req.DescLength <= 0 {
		req.DescLength = 300
	}
	if req.ReuseLimit <= 0 {
		req.ReuseLimit = 2
	}

	suggestions, err := s.suggests.Suggest(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to expand keyword: %w", err)
	}
	if len(suggestions) > req.SuggestCount {
		suggestions = suggestions[:req.SuggestCount]
	}

	items := BuildItems(keyword, suggestions, req.TitleCount, req.DescLength, req.ReuseLimit)

	batch := &models.FileBatch{
		FileName:     fmt.Sprintf("batch-%s-%d", sanitizeKey(keyword), time.Now().UTC().Unix()),
		SeedKeyword:  keyword,
		TitleCount:   len(items),
		SuggestCount: req.SuggestCount,
		DescLength:   req.DescLength,
		Suggestions:  suggestions,
	}

	if err := s.batches.Create(ctx, batch, items); err != nil {
		return nil, err
	}
	return batch, nil
}

// BuildItems derives title/description/tags triples from a keyword and its
// suggestion phrases. When suggestions run out, numbered keyword variants
// keep every title unique.
func BuildItems(keyword string, suggestions []string, titleCount, descLength, reuseLimit int) []*models.FileItem {
	items := make([]*models.FileItem, 0, titleCount)
	for i := 0; i < titleCount; i++ {
		var title string
		if i < len(suggestions) && strings.TrimSpace(suggestions[i]) != "" {
			title = strings.TrimSpace(suggestions[i])
		} else {
			title = fmt.Sprintf("%s #%d", keyword, i+1)
		}

		items = append(items, &models.FileItem{
			Title:       title,
			Description: buildDescription(title, keyword, suggestions, descLength),
			Tags:        buildTags(keyword, suggestions),
			ReuseLimit:  reuseLimit,
		})
	}
	return items
}

func buildDescription(title, keyword string, suggestions []string, maxLen int) string {
	parts := []string{title + "."}
	parts = append(parts, fmt.Sprintf("Everything you need to know about %s.", keyword))
	for _, sg := range suggestions {
		sg = strings.TrimSpace(sg)
		if sg == "" || strings.EqualFold(sg, title) {
			continue
		}
		parts = append(parts, fmt.Sprintf("Also covered: %s.", sg))
	}

	desc := strings.Join(parts, " ")
	if len(desc) > maxLen {
		cut := desc[:maxLen]
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		desc = cut
	}
	return desc
}

func buildTags(keyword string, suggestions []string) string {
	tags := []string{keyword}
	for _, sg := range suggestions {
		sg = strings.TrimSpace(sg)
		if sg != "" && !strings.EqualFold(sg, keyword) {
			tags = append(tags, sg)
		}
		if len(tags) >= 10 {
			break
		}
	}
	return strings.Join(tags, ",")
}
