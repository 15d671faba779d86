package enricher

import (
	"context"
	"strings"
	"unicode"

	"eventscout/internal/domain"
)

// Simple реализует domain.Enricher эвристикой без внешнего провайдера.
// Используется в тестах и при отсутствии ключа API.
type Simple struct{}

var _ domain.Enricher = (*Simple)(nil)

// NewSimple создаёт обогатитель.
func NewSimple() *Simple {
	return &Simple{}
}

var typeKeywords = map[string][]string{
	"music":     {"concert", "music", "dj", "festival", "band", "gig"},
	"tech":      {"tech", "developer", "software", "startup", "hackathon", "ai", "coding"},
	"sports":    {"match", "tournament", "marathon", "cricket", "rugby", "sports"},
	"education": {"workshop", "lecture", "course", "seminar", "training", "conference"},
	"food":      {"food", "dinner", "tasting", "culinary", "restaurant", "street food"},
	"art":       {"art", "gallery", "exhibition", "theatre", "painting", "dance"},
}

var sentimentKeywords = map[string][]string{
	"exciting": {"exciting", "amazing", "thrilling", "party", "celebrate", "fun"},
	"formal":   {"formal", "summit", "corporate", "keynote", "gala"},
	"casual":   {"casual", "meetup", "hangout", "open mic", "community"},
}

// Enrich строит обогащение из самого текста: первые слова как summary,
// ключевые слова как теги и классы.
func (s *Simple) Enrich(_ context.Context, description, _ string) (domain.Enrichment, error) {
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

	lower := strings.ToLower(text)
	eventType := "other"
	var tags []string
	for kind, keywords := range typeKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				if eventType == "other" {
					eventType = kind
				}
				tags = append(tags, keyword)
				break
			}
		}
	}
	sentiment := "neutral"
	for mood, keywords := range sentimentKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				sentiment = mood
				break
			}
		}
		if sentiment != "neutral" {
			break
		}
	}

	words := strings.Fields(text)
	summary := strings.Join(words[:min(len(words), 30)], " ")

	if tags == nil {
		tags = []string{}
	}
	if len(tags) > 5 {
		tags = tags[:5]
	}

	return domain.Enrichment{
		Summary:   summary,
		Tags:      tags,
		EventType: eventType,
		Sentiment: sentiment,
		Entities:  extractEntities(words),
	}, nil
}

// extractEntities вытаскивает последовательности слов с заглавной буквы.
func extractEntities(words []string) []domain.Entity {
	entities := []domain.Entity{}
	var current []string
	flush := func() {
		if len(current) >= 2 {
			entities = append(entities, domain.Entity{Text: strings.Join(current, " "), Label: "MISC"})
		}
		current = nil
	}
	for i, word := range words {
		trimmed := strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
		if trimmed == "" {
			flush()
			continue
		}
		runes := []rune(trimmed)
		if unicode.IsUpper(runes[0]) && i > 0 {
			current = append(current, trimmed)
		} else {
			flush()
		}
	}
	flush()
	return entities
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
