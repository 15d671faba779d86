package domain

import "testing"

func TestPlanForTier(t *testing.T) {
	free := PlanForTier(TierFree)
	if free.RecommendationCap != 10 || free.VirtualEvents || free.Directions {
		t.Fatalf("free = %+v", free)
	}

	pro := PlanForTier(TierPro)
	if pro.RecommendationCap != 50 || !pro.VirtualEvents || !pro.Directions || !pro.MapsLinks {
		t.Fatalf("pro = %+v", pro)
	}
}

func TestPlanForUnknownTierFallsBackToFree(t *testing.T) {
	plan := PlanForTier(Tier("platinum"))
	if plan.Tier != TierFree {
		t.Fatalf("неизвестный тариф дал %+v", plan)
	}
}

func TestKnownTier(t *testing.T) {
	if !KnownTier(" PRO ") || !KnownTier("free") {
		t.Fatal("допустимые тарифы не распознаны")
	}
	if KnownTier("platinum") || KnownTier("") {
		t.Fatal("мусорный тариф распознан")
	}
}

func TestInteractionTypeValid(t *testing.T) {
	for _, kind := range []InteractionType{InteractionView, InteractionClick, InteractionBooking} {
		if !kind.Valid() {
			t.Fatalf("%q должен быть допустимым", kind)
		}
	}
	if InteractionType("teleport").Valid() {
		t.Fatal("неизвестный тип прошёл проверку")
	}
}

func TestEngagementScore(t *testing.T) {
	event := Event{Views: 7, Clicks: 3}
	if event.EngagementScore() != 10 {
		t.Fatalf("score = %d", event.EngagementScore())
	}
}
