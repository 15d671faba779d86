package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"eventscout/internal/adapters/locator"
	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

// ErrForbidden возвращается при попытке читать чужой журнал рекомендаций.
var ErrForbidden = errors.New("доступ запрещён")

// Service строит рекомендации по каталогу и журналирует их.
type Service struct {
	events    domain.EventRepo
	users     domain.UserRepo
	recs      domain.RecommendationRepo
	subs      domain.SubscriptionRepo
	generator domain.Generator
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт сервис рекомендаций. generator может быть nil:
// тогда дополнение каталога кандидатами пропускается.
func NewService(
	events domain.EventRepo,
	users domain.UserRepo,
	recs domain.RecommendationRepo,
	subs domain.SubscriptionRepo,
	generator domain.Generator,
	log zerolog.Logger,
) *Service {
	return &Service{
		events:    events,
		users:     users,
		recs:      recs,
		subs:      subs,
		generator: generator,
		log:       log.With().Str("component", "recommend").Logger(),
		now:       time.Now,
	}
}

// Personalized строит рекомендации под пользователя. Любой внутренний сбой
// деградирует до пустого списка: рекомендации никогда не падают ошибкой.
func (s *Service) Personalized(ctx context.Context, userID int64, interestsOverride []string, sentiment string) []domain.RecommendedEvent {
	user, err := s.users.GetByID(userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("пользователь не загружен")
		return []domain.RecommendedEvent{}
	}
	plan := user.Plan()
	metrics.IncRecommendation(string(plan.Tier))

	interests := interestsOverride
	if len(interests) == 0 {
		interests = SplitInterests(user.Preferences)
	}

	matched, err := s.matchCatalog(interests, plan)
	if err != nil {
		s.log.Warn().Err(err).Msg("выборка каталога не удалась")
		return []domain.RecommendedEvent{}
	}

	// Каталог ранжируется по вовлечённости, кандидаты идут следом.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Engagement > matched[j].Engagement
	})

	if len(matched) < plan.RecommendationCap && s.generator != nil {
		missing := plan.RecommendationCap - len(matched)
		generated, err := s.generator.Generate(ctx, interests, sentiment, missing)
		if err != nil {
			s.log.Warn().Err(err).Msg("генерация кандидатов не удалась")
		}
		for _, candidate := range generated {
			if !plan.VirtualEvents && locator.IsVirtual(candidate.Location, candidate.Description) {
				continue
			}
			matched = append(matched, candidate)
		}
	}

	if len(matched) > plan.RecommendationCap {
		matched = matched[:plan.RecommendationCap]
	}

	s.journal(user.ID, interests, sentiment, matched)
	return matched
}

func (s *Service) matchCatalog(interests []string, plan domain.TierPlan) ([]domain.RecommendedEvent, error) {
	events, err := s.events.ListUpcomingClassified(s.now())
	if err != nil {
		return nil, err
	}
	matched := make([]domain.RecommendedEvent, 0, len(events))
	for _, event := range events {
		if !plan.VirtualEvents && locator.IsVirtual(event.Location, event.Description) {
			continue
		}
		if !MatchesInterests(event.EventType, interests) {
			continue
		}
		matched = append(matched, ToRecommended(event))
	}
	return matched, nil
}

// journal пишет выдачу в append-only журнал. Сбой журнала не ломает ответ.
func (s *Service) journal(userID int64, interests []string, sentiment string, events []domain.RecommendedEvent) {
	payload, err := json.Marshal(events)
	if err != nil {
		s.log.Warn().Err(err).Msg("сериализация выдачи не удалась")
		return
	}
	_, err = s.recs.SaveRecommendation(domain.Recommendation{
		UserID:     userID,
		Interests:  strings.Join(interests, ", "),
		Sentiment:  sentiment,
		EventsJSON: payload,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("журнал рекомендаций не записан")
		return
	}
	if err := s.users.IncrementRecommendationCount(userID); err != nil {
		s.log.Warn().Err(err).Msg("счётчик рекомендаций не обновлён")
	}
}

// MatchesInterests проверяет строгое совпадение типа события с одним из
// интересов без учёта регистра. Подстроки не совпадают.
func MatchesInterests(eventType string, interests []string) bool {
	kind := strings.ToLower(strings.TrimSpace(eventType))
	if kind == "" {
		return false
	}
	for _, interest := range interests {
		if strings.ToLower(strings.TrimSpace(interest)) == kind {
			return true
		}
	}
	return false
}

// SplitInterests разбирает сохранённые интересы пользователя.
func SplitInterests(preferences string) []string {
	parts := strings.Split(preferences, ",")
	interests := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			interests = append(interests, trimmed)
		}
	}
	return interests
}

// ToRecommended переводит событие каталога в позицию выдачи.
func ToRecommended(event domain.Event) domain.RecommendedEvent {
	date := ""
	if event.Date != nil {
		date = event.Date.Format("2006-01-02")
	}
	return domain.RecommendedEvent{
		EventID:     event.ID,
		Name:        event.Name,
		Location:    event.Location,
		Date:        date,
		Description: event.Description,
		BookingURL:  event.BookingURL,
		Source:      event.Source,
		EventType:   event.EventType,
		Sentiment:   event.Sentiment,
		Summary:     event.Summary,
		Views:       event.Views,
		Clicks:      event.Clicks,
		Engagement:  event.EngagementScore(),
	}
}

// Discover генерирует кандидатов под интересы напрямую, минуя каталог,
// и журналирует выдачу. Без генератора возвращается пустой список.
func (s *Service) Discover(ctx context.Context, userID int64, interests []string, sentiment string, limit int) ([]domain.RecommendedEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	if s.generator == nil {
		return []domain.RecommendedEvent{}, nil
	}
	generated, err := s.generator.Generate(ctx, interests, sentiment, limit)
	if err != nil {
		return nil, fmt.Errorf("генерация кандидатов: %w", err)
	}
	if generated == nil {
		generated = []domain.RecommendedEvent{}
	}
	s.journal(userID, interests, sentiment, generated)
	return generated, nil
}

// Trending возвращает события с наибольшей вовлечённостью.
func (s *Service) Trending(limit int) ([]domain.RecommendedEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	events, err := s.events.ListEvents()
	if err != nil {
		return nil, fmt.Errorf("выборка каталога: %w", err)
	}
	out := make([]domain.RecommendedEvent, 0, len(events))
	for _, event := range events {
		out = append(out, ToRecommended(event))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Engagement > out[j].Engagement
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Preferences возвращает сохранённые интересы пользователя.
func (s *Service) Preferences(userID int64) ([]string, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return SplitInterests(user.Preferences), nil
}

// UpdatePreferences сохраняет интересы пользователя.
func (s *Service) UpdatePreferences(userID int64, interests []string) error {
	cleaned := make([]string, 0, len(interests))
	for _, interest := range interests {
		if trimmed := strings.TrimSpace(interest); trimmed != "" {
			cleaned = append(cleaned, strings.ToLower(trimmed))
		}
	}
	return s.users.UpdatePreferences(userID, strings.Join(cleaned, ", "))
}

// HistoryEntry — запись журнала рекомендаций в ответе API.
type HistoryEntry struct {
	ID        int64                     `json:"id"`
	Interests string                    `json:"interests"`
	Sentiment string                    `json:"sentiment,omitempty"`
	Events    []domain.RecommendedEvent `json:"events"`
}

// History возвращает журнал рекомендаций пользователя targetID.
// Чужой журнал доступен только организатору.
func (s *Service) History(requestor domain.User, targetID int64, limit int) ([]HistoryEntry, error) {
	if requestor.ID != targetID && requestor.Role != domain.RoleOrganizer {
		return nil, ErrForbidden
	}
	recs, err := s.recs.ListRecommendations(targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("выборка журнала: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		entry := HistoryEntry{
			ID:        rec.ID,
			Interests: rec.Interests,
			Sentiment: rec.Sentiment,
			Events:    []domain.RecommendedEvent{},
		}
		if len(rec.EventsJSON) > 0 {
			if err := json.Unmarshal(rec.EventsJSON, &entry.Events); err != nil {
				s.log.Warn().Err(err).Int64("recommendation_id", rec.ID).Msg("журнал повреждён")
				entry.Events = []domain.RecommendedEvent{}
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Upgrade переводит пользователя на новый тариф и журналирует смену.
func (s *Service) Upgrade(userID int64, rawTier string) (domain.User, error) {
	if !domain.KnownTier(rawTier) {
		return domain.User{}, fmt.Errorf("неизвестный тариф %q", rawTier)
	}
	tier := domain.Tier(strings.ToLower(strings.TrimSpace(rawTier)))

	if err := s.users.UpdateTier(userID, tier); err != nil {
		return domain.User{}, fmt.Errorf("смена тарифа: %w", err)
	}
	now := s.now()
	if s.subs != nil {
		_, err := s.subs.SaveSubscription(domain.UserSubscription{
			UserID:      userID,
			Tier:        tier,
			Status:      "active",
			StartDate:   now,
			UpgradeDate: &now,
		})
		if err != nil {
			s.log.Warn().Err(err).Msg("журнал подписок не записан")
		}
	}
	return s.users.GetByID(userID)
}
