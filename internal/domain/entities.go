package domain

import "time"

// Event описывает событие в каталоге.
type Event struct {
	ID          int64
	Name        string
	Location    string
	Date        *time.Time
	Description string
	BookingURL  string
	Source      string
	Tags        []string
	Summary     string
	EventType   string
	Sentiment   string
	Entities    []Entity
	Views       int
	Clicks      int
}

// Entity представляет именованную сущность из описания события.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Enrichment содержит результат NLP-обработки описания события.
type Enrichment struct {
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	EventType string   `json:"event_type"`
	Sentiment string   `json:"sentiment"`
	Entities  []Entity `json:"entities"`
}

// Enriched сообщает, проходило ли событие NLP-обработку.
func (e Event) Enriched() bool {
	return e.Summary != "" && e.EventType != ""
}

// EngagementScore возвращает сумму просмотров и кликов.
func (e Event) EngagementScore() int {
	return e.Views + e.Clicks
}

// User описывает пользователя сервиса.
type User struct {
	ID                    int64
	Email                 string
	Name                  string
	Preferences           string
	Role                  UserRole
	Tier                  Tier
	SubscriptionStatus    string
	SubscriptionStartDate *time.Time
	SubscriptionEndDate   *time.Time
	RecommendationCount   int
}

// GoogleProfile содержит данные пользователя из Google OAuth.
type GoogleProfile struct {
	Email   string
	Name    string
	Picture string
}

// Recommendation хранит один выполненный запрос рекомендаций.
// Запись только добавляется и никогда не изменяется.
type Recommendation struct {
	ID         int64
	UserID     int64
	Interests  string
	Sentiment  string
	EventsJSON []byte
}

// UserSubscription — запись журнала смены тарифа.
type UserSubscription struct {
	ID          int64
	UserID      int64
	Tier        Tier
	Status      string
	StartDate   time.Time
	EndDate     *time.Time
	UpgradeDate *time.Time
	CreatedAt   time.Time
}

// RecommendedEvent — позиция в ответе рекомендаций.
type RecommendedEvent struct {
	EventID     int64  `json:"event_id,omitempty"`
	Name        string `json:"event_name"`
	Location    string `json:"location"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description"`
	BookingURL  string `json:"booking_url"`
	Source      string `json:"source"`
	EventType   string `json:"event_type,omitempty"`
	Sentiment   string `json:"sentiment,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Views       int    `json:"views"`
	Clicks      int    `json:"clicks"`
	Engagement  int    `json:"engagement_score"`
}

// Coordinates — точка на карте.
type Coordinates struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name,omitempty"`
}

// MapCenter — центр карты для фронтенда.
type MapCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationData — результат разрешения локации события.
type LocationData struct {
	IsVirtual    bool         `json:"is_virtual"`
	LocationName string       `json:"location_name"`
	Coordinates  *Coordinates `json:"coordinates"`
	MapCenter    MapCenter    `json:"map_center"`
	ZoomLevel    int          `json:"zoom_level"`
	MapURL       string       `json:"map_url,omitempty"`
}

// Route описывает маршрут между двумя точками.
type Route struct {
	Mode      string `json:"travel_mode"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	StartAddr string `json:"start_address,omitempty"`
	EndAddr   string `json:"end_address,omitempty"`
	MapsURL   string `json:"maps_url,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// RouteError — структурная ошибка провайдера маршрутов с запасной ссылкой.
type RouteError struct {
	Reason      string `json:"reason"`
	FallbackURL string `json:"fallback_url"`
}

// InteractionType перечисляет типы взаимодействий с событием.
type InteractionType string

const (
	InteractionView    InteractionType = "view"
	InteractionClick   InteractionType = "click"
	InteractionBooking InteractionType = "booking"
)

// Valid проверяет известность типа взаимодействия.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionClick, InteractionBooking:
		return true
	}
	return false
}

// Interaction — одно взаимодействие внутри сессии.
type Interaction struct {
	EventID   int64           `json:"event_id"`
	Type      InteractionType `json:"interaction_type"`
	UserID    int64           `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Session — аналитическая сессия пользователя. Живёт в SessionStore,
// теряется при рестарте процесса: долговечность не гарантируется.
type Session struct {
	ID            string         `json:"session_id"`
	UserID        int64          `json:"user_id"`
	StartTime     time.Time      `json:"start_time"`
	Interactions  []Interaction  `json:"interactions"`
	EventsViewed  map[int64]bool `json:"events_viewed"`
	EventsClicked map[int64]bool `json:"events_clicked"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// EventEngagement — агрегат взаимодействий по одному событию за сессию.
type EventEngagement struct {
	EventID         int64   `json:"event_id"`
	ViewCount       int     `json:"view_count"`
	ClickCount      int     `json:"click_count"`
	EngagementScore int     `json:"engagement_score"`
	SessionDuration float64 `json:"session_duration"`
}

// SessionAggregate — итог закрытой сессии.
type SessionAggregate struct {
	SessionID             string            `json:"session_id"`
	ProcessedInteractions []EventEngagement `json:"processed_interactions"`
	Duration              float64           `json:"session_duration"`
}

// SessionSnapshot — срез живой сессии для операционной сводки.
type SessionSnapshot struct {
	SessionID         string    `json:"session_id"`
	UserID            int64     `json:"user_id"`
	StartTime         time.Time `json:"start_time"`
	EventsViewed      int       `json:"events_viewed"`
	EventsClicked     int       `json:"events_clicked"`
	TotalInteractions int       `json:"total_interactions"`
}
