package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventscout/internal/domain"
	"eventscout/internal/infra/llm"
)

// SourceName — значение поля source у сгенерированных событий-кандидатов.
const SourceName = "recommendation"

type chatClient interface {
	CompleteJSON(ctx context.Context, req llm.ChatRequest, out any) error
	Model() string
}

// LLM реализует domain.Generator: придумывает правдоподобные события-кандидаты
// под интересы пользователя, когда в каталоге не хватает совпадений.
type LLM struct {
	client  chatClient
	region  string
	timeout time.Duration
}

var _ domain.Generator = (*LLM)(nil)

// NewLLM создаёт генератор. region подставляется в промпт как регион поиска.
func NewLLM(client chatClient, region string, timeout time.Duration) *LLM {
	if region == "" {
		region = "Sri Lanka"
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &LLM{client: client, region: region, timeout: timeout}
}

type generatedEvent struct {
	Name        string `json:"event_name"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Description string `json:"description"`
	BookingURL  string `json:"booking_url"`
}

type generateResponse struct {
	Events []generatedEvent `json:"events"`
}

// Generate возвращает до limit событий-кандидатов. Ошибки провайдера
// возвращаются как есть: деградацию до пустого списка решает вызывающий.
func (g *LLM) Generate(ctx context.Context, interests []string, sentiment string, limit int) ([]domain.RecommendedEvent, error) {
	if limit <= 0 {
		return []domain.RecommendedEvent{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	interestLine := strings.Join(interests, ", ")
	if interestLine == "" {
		interestLine = "general entertainment"
	}
	moodLine := sentiment
	if moodLine == "" {
		moodLine = "any"
	}

	userPrompt := fmt.Sprintf(`Suggest up to %d upcoming events in %s matching these interests: %s.
Preferred mood: %s.

Return a JSON object {"events": [...]} where each event has:
- event_name
- location (a real venue or city in %s)
- date (YYYY-MM-DD, within the next 60 days)
- description (1-2 sentences)
- booking_url (a plausible ticketing or info URL)`,
		limit, g.region, interestLine, moodLine, g.region)

	req := llm.ChatRequest{
		Temperature: 0.7,
		MaxTokens:   1200,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "You are an event discovery assistant. Answer with JSON only."},
			{Role: llm.RoleUser, Content: userPrompt},
		},
	}

	var parsed generateResponse
	if err := g.client.CompleteJSON(ctx, req, &parsed); err != nil {
		return nil, fmt.Errorf("генерация кандидатов: %w", err)
	}

	out := make([]domain.RecommendedEvent, 0, len(parsed.Events))
	for _, candidate := range parsed.Events {
		name := strings.TrimSpace(candidate.Name)
		if name == "" {
			continue
		}
		out = append(out, domain.RecommendedEvent{
			Name:        name,
			Location:    strings.TrimSpace(candidate.Location),
			Date:        strings.TrimSpace(candidate.Date),
			Description: strings.TrimSpace(candidate.Description),
			BookingURL:  strings.TrimSpace(candidate.BookingURL),
			Source:      SourceName,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
