package enricher

import (
	"context"
	"testing"
)

func TestSimpleEnrichEmptyDescription(t *testing.T) {
	s := NewSimple()
	got, err := s.Enrich(context.Background(), "   ", "Colombo")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got.Summary != "No description available." {
		t.Fatalf("summary = %q", got.Summary)
	}
	if got.EventType != "unknown" || got.Sentiment != "neutral" {
		t.Fatalf("классы = %q/%q", got.EventType, got.Sentiment)
	}
	if got.Tags == nil || got.Entities == nil {
		t.Fatal("tags и entities должны быть пустыми слайсами, не nil")
	}
}

func TestSimpleEnrichClassifies(t *testing.T) {
	s := NewSimple()
	got, err := s.Enrich(context.Background(), "Join the exciting tech hackathon hosted by Colombo Innovation Hub", "Colombo")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got.EventType != "tech" {
		t.Fatalf("event_type = %q, ожидался tech", got.EventType)
	}
	if got.Sentiment != "exciting" {
		t.Fatalf("sentiment = %q, ожидался exciting", got.Sentiment)
	}
	if got.Summary == "" {
		t.Fatal("пустой summary")
	}
	foundEntity := false
	for _, e := range got.Entities {
		if e.Text == "Colombo Innovation Hub" {
			foundEntity = true
		}
	}
	if !foundEntity {
		t.Fatalf("сущность не извлечена: %v", got.Entities)
	}
}

func TestSimpleEnrichUnknownContent(t *testing.T) {
	s := NewSimple()
	got, err := s.Enrich(context.Background(), "something is happening somewhere", "")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got.EventType != "other" {
		t.Fatalf("event_type = %q, ожидался other", got.EventType)
	}
	if got.Sentiment != "neutral" {
		t.Fatalf("sentiment = %q, ожидался neutral", got.Sentiment)
	}
}
