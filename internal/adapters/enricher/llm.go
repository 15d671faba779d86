package enricher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventscout/internal/domain"
	"eventscout/internal/infra/llm"
)

// EventTypes — допустимые классы событий.
var EventTypes = []string{"music", "tech", "sports", "education", "food", "art", "other"}

// Sentiments — допустимые тональности.
var Sentiments = []string{"exciting", "formal", "casual", "neutral"}

type chatClient interface {
	CompleteJSON(ctx context.Context, req llm.ChatRequest, out any) error
	Model() string
}

// LLM реализует domain.Enricher через генеративный провайдер.
type LLM struct {
	client  chatClient
	timeout time.Duration
}

var _ domain.Enricher = (*LLM)(nil)

// NewLLM создаёт обогатитель.
func NewLLM(client chatClient, timeout time.Duration) *LLM {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLM{client: client, timeout: timeout}
}

// Fallback возвращает запасное обогащение, применяемое при любой ошибке провайдера.
func Fallback() domain.Enrichment {
	return domain.Enrichment{
		Summary:   "Error generating summary.",
		Tags:      []string{},
		EventType: "unknown",
		Sentiment: "neutral",
		Entities:  []domain.Entity{},
	}
}

// Enrich строит summary/tags/type/sentiment/entities по описанию события.
func (l *LLM) Enrich(ctx context.Context, description, location string) (domain.Enrichment, error) {
	text := strings.TrimSpace(description)
	if text == "" {
		return domain.Enrichment{
			Summary:   "No description available.",
			Tags:      []string{},
			EventType: "unknown",
			Sentiment: "neutral",
			Entities:  []domain.Entity{},
		}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(`Analyze the following event description and return:
- summary (max 30 words)
- tags (3-5 relevant keywords)
- event_type (one of: %s)
- sentiment (one of: %s)
- entities (named entities as objects with "text" and "label")

Format the answer strictly as a JSON object with keys: summary, tags, event_type, sentiment, entities.

Location: %s
Description:
%s`, strings.Join(EventTypes, ", "), strings.Join(Sentiments, ", "), location, clipRunes(text, 4000))

	req := llm.ChatRequest{
		Temperature: 0.2,
		MaxTokens:   400,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "You are an event analysis assistant. Use only facts from the given description."},
			{Role: llm.RoleUser, Content: userPrompt},
		},
	}

	var parsed domain.Enrichment
	if err := l.client.CompleteJSON(ctx, req, &parsed); err != nil {
		return domain.Enrichment{}, fmt.Errorf("обогащение события: %w", err)
	}
	return normalize(parsed), nil
}

func normalize(e domain.Enrichment) domain.Enrichment {
	e.Summary = strings.TrimSpace(e.Summary)
	e.EventType = strings.ToLower(strings.TrimSpace(e.EventType))
	if !contains(EventTypes, e.EventType) {
		e.EventType = "other"
	}
	e.Sentiment = strings.ToLower(strings.TrimSpace(e.Sentiment))
	if !contains(Sentiments, e.Sentiment) {
		e.Sentiment = "neutral"
	}
	tags := make([]string, 0, len(e.Tags))
	for _, tag := range e.Tags {
		trimmed := strings.ToLower(strings.TrimSpace(tag))
		if trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	e.Tags = tags
	if e.Entities == nil {
		e.Entities = []domain.Entity{}
	}
	return e
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
