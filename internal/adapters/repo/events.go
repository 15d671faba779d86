package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

const eventColumns = `id, event_name, COALESCE(location, ''), date, COALESCE(description, ''),
	COALESCE(booking_url, ''), COALESCE(source, ''), tags, COALESCE(summary, ''),
	COALESCE(event_type, ''), COALESCE(sentiment, ''), entities, views, clicks`

// EventRepo — Postgres-реализация domain.EventRepo.
type EventRepo struct {
	pool *pgxpool.Pool
}

var _ domain.EventRepo = (*EventRepo)(nil)

// NewEventRepo создаёт репозиторий событий.
func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		event    domain.Event
		tags     []byte
		entities []byte
	)
	err := row.Scan(&event.ID, &event.Name, &event.Location, &event.Date, &event.Description,
		&event.BookingURL, &event.Source, &tags, &event.Summary,
		&event.EventType, &event.Sentiment, &entities, &event.Views, &event.Clicks)
	if err != nil {
		return domain.Event{}, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &event.Tags); err != nil {
			return domain.Event{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &event.Entities); err != nil {
			return domain.Event{}, fmt.Errorf("decode entities: %w", err)
		}
	}
	return event, nil
}

// CreateEvent сохраняет событие и возвращает его с присвоенным идентификатором.
func (r *EventRepo) CreateEvent(event domain.Event) (domain.Event, error) {
	ctx, cancel := connCtx()
	defer cancel()

	tags, err := json.Marshal(event.Tags)
	if err != nil {
		return domain.Event{}, fmt.Errorf("marshal tags: %w", err)
	}
	entities, err := json.Marshal(event.Entities)
	if err != nil {
		return domain.Event{}, fmt.Errorf("marshal entities: %w", err)
	}

	start := time.Now()
	err = r.pool.QueryRow(ctx, `
		INSERT INTO events (event_name, location, date, description, booking_url, source,
			tags, summary, event_type, sentiment, entities, views, clicks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		event.Name, event.Location, event.Date, event.Description, event.BookingURL, event.Source,
		tags, event.Summary, event.EventType, event.Sentiment, entities, event.Views, event.Clicks,
	).Scan(&event.ID)
	metrics.ObserveNetworkRequest("postgres", "create_event", "events", start, err)
	if err != nil {
		return domain.Event{}, fmt.Errorf("создание события: %w", err)
	}
	return event, nil
}

// GetEvent возвращает событие по идентификатору.
func (r *EventRepo) GetEvent(id int64) (domain.Event, error) {
	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := scanEvent(row)
	metrics.ObserveNetworkRequest("postgres", "get_event", "events", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("получение события: %w", err)
	}
	return event, nil
}

// ListEvents возвращает весь каталог, ближайшие события первыми.
func (r *EventRepo) ListEvents() ([]domain.Event, error) {
	return r.list(`SELECT ` + eventColumns + ` FROM events ORDER BY date ASC NULLS LAST, id ASC`)
}

// ListUpcomingClassified возвращает будущие события, прошедшие классификацию.
func (r *EventRepo) ListUpcomingClassified(now time.Time) ([]domain.Event, error) {
	return r.list(`SELECT `+eventColumns+` FROM events
		WHERE date IS NOT NULL AND date >= $1
		  AND COALESCE(event_type, '') <> '' AND COALESCE(summary, '') <> ''
		ORDER BY date ASC`, now)
}

// ListUnenriched возвращает события без NLP-обогащения.
func (r *EventRepo) ListUnenriched() ([]domain.Event, error) {
	return r.list(`SELECT ` + eventColumns + ` FROM events
		WHERE COALESCE(summary, '') = '' OR COALESCE(event_type, '') = ''
		ORDER BY id ASC`)
}

func (r *EventRepo) list(query string, args ...any) ([]domain.Event, error) {
	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	rows, err := r.pool.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "list_events", "events", start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка событий: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("чтение события: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("обход событий: %w", err)
	}
	return events, nil
}

// SaveEnrichment записывает результат NLP-обработки события.
func (r *EventRepo) SaveEnrichment(eventID int64, enrichment domain.Enrichment) error {
	ctx, cancel := connCtx()
	defer cancel()

	tags, err := json.Marshal(enrichment.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	entities, err := json.Marshal(enrichment.Entities)
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}

	start := time.Now()
	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET summary = $2, tags = $3, event_type = $4, sentiment = $5, entities = $6
		WHERE id = $1`,
		eventID, enrichment.Summary, tags, enrichment.EventType, enrichment.Sentiment, entities)
	metrics.ObserveNetworkRequest("postgres", "save_enrichment", "events", start, err)
	if err != nil {
		return fmt.Errorf("сохранение обогащения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementCounter монотонно увеличивает счётчик взаимодействия и
// возвращает обновлённое событие. booking считается кликом.
func (r *EventRepo) IncrementCounter(eventID int64, interaction domain.InteractionType) (domain.Event, error) {
	column := "views"
	if interaction == domain.InteractionClick || interaction == domain.InteractionBooking {
		column = "clicks"
	}

	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	row := r.pool.QueryRow(ctx,
		`UPDATE events SET `+column+` = `+column+` + 1 WHERE id = $1 RETURNING `+eventColumns, eventID)
	event, err := scanEvent(row)
	metrics.ObserveNetworkRequest("postgres", "increment_counter", "events", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("инкремент счётчика: %w", err)
	}
	return event, nil
}

// DeletePastEvents удаляет события с датой раньше now и возвращает их число.
// События без даты не трогаются.
func (r *EventRepo) DeletePastEvents(now time.Time) (int, error) {
	ctx, cancel := connCtx()
	defer cancel()

	start := time.Now()
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE date IS NOT NULL AND date < $1`, now)
	metrics.ObserveNetworkRequest("postgres", "delete_past_events", "events", start, err)
	if err != nil {
		return 0, fmt.Errorf("удаление прошедших событий: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
