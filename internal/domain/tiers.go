package domain

import "strings"

// Tier описывает тариф пользователя.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// KnownTier проверяет, что строка — допустимый тариф.
func KnownTier(raw string) bool {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierFree, TierPro:
		return true
	}
	return false
}

// UserRole описывает роль пользователя.
type UserRole string

const (
	// RolePerson — обычный посетитель.
	RolePerson UserRole = "person"
	// RoleOrganizer — организатор событий, видит дашборды аналитики.
	RoleOrganizer UserRole = "event"
)

// TierPlan описывает ограничения тарифа.
type TierPlan struct {
	Tier              Tier
	Name              string
	RecommendationCap int
	VirtualEvents     bool
	Directions        bool
	MapsLinks         bool
}

var plans = map[Tier]TierPlan{
	TierFree: {
		Tier:              TierFree,
		Name:              "Free",
		RecommendationCap: 10,
	},
	TierPro: {
		Tier:              TierPro,
		Name:              "Pro",
		RecommendationCap: 50,
		VirtualEvents:     true,
		Directions:        true,
		MapsLinks:         true,
	},
}

// PlanForTier возвращает ограничения тарифа. Неизвестный тариф трактуется как Free.
func PlanForTier(tier Tier) TierPlan {
	if plan, ok := plans[Tier(strings.ToLower(string(tier)))]; ok {
		return plan
	}
	return plans[TierFree]
}

// Plan возвращает тариф пользователя.
func (u User) Plan() TierPlan {
	return PlanForTier(u.Tier)
}
