package sessionstore

import (
	"sync"
	"testing"
	"time"

	"eventscout/internal/domain"
)

func TestMemorySaveGetIsolation(t *testing.T) {
	store := NewMemory()
	session := domain.Session{
		ID:           "s1",
		UserID:       7,
		StartTime:    time.Now(),
		EventsViewed: map[int64]bool{1: true},
	}
	if err := store.Save(session); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	got, ok, err := store.Get("s1")
	if err != nil || !ok {
		t.Fatalf("сессия не найдена: %v", err)
	}

	// Мутация копии не должна трогать хранилище.
	got.EventsViewed[2] = true
	again, _, _ := store.Get("s1")
	if len(again.EventsViewed) != 1 {
		t.Fatal("хранилище отдаёт ссылку на внутреннее состояние")
	}
}

func TestMemoryGetMissing(t *testing.T) {
	store := NewMemory()
	_, ok, err := store.Get("missing")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if ok {
		t.Fatal("несуществующая сессия найдена")
	}
}

func TestMemoryEvictOlderThan(t *testing.T) {
	store := NewMemory()
	now := time.Now()
	store.Save(domain.Session{ID: "old", StartTime: now.Add(-48 * time.Hour)})
	store.Save(domain.Session{ID: "fresh", StartTime: now})

	evicted, err := store.EvictOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if evicted != 1 {
		t.Fatalf("удалено %d", evicted)
	}
	if _, ok, _ := store.Get("old"); ok {
		t.Fatal("старая сессия выжила")
	}
	if _, ok, _ := store.Get("fresh"); !ok {
		t.Fatal("свежая сессия удалена")
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	store := NewMemory()
	store.Save(domain.Session{ID: "shared", StartTime: time.Now()})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				session, ok, _ := store.Get("shared")
				if !ok {
					continue
				}
				session.Interactions = append(session.Interactions, domain.Interaction{EventID: 1, Type: domain.InteractionView})
				_ = store.Save(session)
				_, _ = store.List()
			}
		}()
	}
	wg.Wait()

	if _, ok, _ := store.Get("shared"); !ok {
		t.Fatal("сессия потеряна под конкурентным доступом")
	}
}
