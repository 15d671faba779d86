package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventscout/internal/domain"
	"eventscout/internal/infra/llm"
	"eventscout/internal/infra/metrics"
)

const maxPageRunes = 12000

type chatClient interface {
	CompleteJSON(ctx context.Context, req llm.ChatRequest, out any) error
	Model() string
}

// LLM реализует domain.Extractor: скачивает страницу источника и просит
// провайдера вычленить из неё список событий.
type LLM struct {
	client  chatClient
	http    *http.Client
	timeout time.Duration
}

var _ domain.Extractor = (*LLM)(nil)

// NewLLM создаёт экстрактор.
func NewLLM(client chatClient, timeout time.Duration) *LLM {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LLM{
		client:  client,
		http:    &http.Client{Timeout: 20 * time.Second},
		timeout: timeout,
	}
}

type extractedEvent struct {
	Name        string `json:"event_name"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Description string `json:"description"`
	BookingURL  string `json:"booking_url"`
}

type extractResponse struct {
	Events []extractedEvent `json:"events"`
}

// Extract возвращает события, найденные на странице источника.
func (l *LLM) Extract(ctx context.Context, sourceURL, sourceName string) ([]domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	page, err := l.fetchPage(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("загрузка источника %s: %w", sourceName, err)
	}

	prompt := fmt.Sprintf(`Extract upcoming events from this web page text.
Return a JSON object {"events": [...]} where each event has:
- event_name
- location
- date (YYYY-MM-DD if present, otherwise empty string)
- description (1-2 sentences)
- booking_url (absolute URL if present, otherwise empty string)

Skip past events and navigation noise. Page URL: %s

Page text:
%s`, sourceURL, clipRunes(page, maxPageRunes))

	req := llm.ChatRequest{
		Temperature: 0,
		MaxTokens:   2000,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "You are a precise web data extraction assistant. Answer with JSON only."},
			{Role: llm.RoleUser, Content: prompt},
		},
	}

	var parsed extractResponse
	if err := l.client.CompleteJSON(ctx, req, &parsed); err != nil {
		return nil, fmt.Errorf("извлечение событий из %s: %w", sourceName, err)
	}

	events := make([]domain.Event, 0, len(parsed.Events))
	for _, candidate := range parsed.Events {
		name := strings.TrimSpace(candidate.Name)
		if name == "" {
			continue
		}
		event := domain.Event{
			Name:        name,
			Location:    strings.TrimSpace(candidate.Location),
			Description: strings.TrimSpace(candidate.Description),
			BookingURL:  strings.TrimSpace(candidate.BookingURL),
			Source:      sourceName,
		}
		if date := strings.TrimSpace(candidate.Date); date != "" {
			if parsedDate, err := time.Parse("2006-01-02", date); err == nil {
				event.Date = &parsedDate
			}
		}
		events = append(events, event)
	}
	return events, nil
}

func (l *LLM) fetchPage(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "eventscout-collector/1.0")
	start := time.Now()
	resp, err := l.http.Do(req)
	metrics.ObserveNetworkRequest("extractor", "fetch_page", sourceURL, start, err)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return stripHTML(string(body)), nil
}

// stripHTML грубо убирает теги и скрипты, оставляя текст страницы.
func stripHTML(page string) string {
	var b strings.Builder
	b.Grow(len(page) / 2)
	inTag := false
	skipUntil := ""
	lower := strings.ToLower(page)
	for i := 0; i < len(page); i++ {
		if skipUntil != "" {
			if strings.HasPrefix(lower[i:], skipUntil) {
				i += len(skipUntil) - 1
				skipUntil = ""
			}
			continue
		}
		ch := page[i]
		if ch == '<' {
			if strings.HasPrefix(lower[i:], "<script") {
				skipUntil = "</script>"
				continue
			}
			if strings.HasPrefix(lower[i:], "<style") {
				skipUntil = "</style>"
				continue
			}
			inTag = true
			continue
		}
		if ch == '>' {
			inTag = false
			b.WriteByte(' ')
			continue
		}
		if !inTag {
			b.WriteByte(ch)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func clipRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
