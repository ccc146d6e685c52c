package challenge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/walletchat/walletchat/internal/logging"
)

func TestIssueProducesUniqueNonces(t *testing.T) {
	svc := NewService(NewMemoryRepository(), 5*time.Minute, logging.Discard())
	ctx := context.Background()

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		c, err := svc.Issue(ctx)
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if _, dup := seen[c.Nonce]; dup {
			t.Fatalf("duplicate nonce %s", c.Nonce)
		}
		seen[c.Nonce] = struct{}{}
	}
}

func TestIssueSetsExpiry(t *testing.T) {
	svc := NewService(NewMemoryRepository(), 5*time.Minute, logging.Discard())
	fixed := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	c, err := svc.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !c.ExpiresAt.Equal(fixed.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", c.ExpiresAt)
	}
	if c.Expired(fixed.Add(4 * time.Minute)) {
		t.Fatal("challenge should still be valid")
	}
	if !c.Expired(fixed.Add(5 * time.Minute)) {
		t.Fatal("challenge should be expired at its expiry instant")
	}
}

func TestLookupAndConsume(t *testing.T) {
	svc := NewService(NewMemoryRepository(), time.Minute, logging.Discard())
	ctx := context.Background()

	c, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := svc.Lookup(ctx, c.Nonce)
	if err != nil || got.Nonce != c.Nonce {
		t.Fatalf("lookup: %v %+v", err, got)
	}
	if _, err := svc.Lookup(ctx, c.Nonce); err != nil {
		t.Fatalf("lookup must not consume: %v", err)
	}

	if _, err := svc.Consume(ctx, c.Nonce); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := svc.Consume(ctx, c.Nonce); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second consume to fail with ErrNotFound, got %v", err)
	}
	if _, err := svc.Lookup(ctx, "never-issued"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunJanitorPurgesExpired(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, time.Minute, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	past := Challenge{Nonce: "old", ExpiresAt: time.Now().Add(-time.Hour)}
	fresh := Challenge{Nonce: "fresh", ExpiresAt: time.Now().Add(time.Hour)}
	_ = repo.Create(ctx, past)
	_ = repo.Create(ctx, fresh)

	done := make(chan struct{})
	go func() {
		svc.RunJanitor(ctx, 10*time.Millisecond, time.Minute)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := repo.Get(ctx, "old"); errors.Is(err, ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("janitor did not purge expired challenge")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := repo.Get(ctx, "fresh"); err != nil {
		t.Fatalf("fresh challenge must survive: %v", err)
	}

	cancel()
	<-done
}

func TestMemoryRepositoryRejectsDuplicateNonce(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	c := Challenge{Nonce: "dup", ExpiresAt: time.Now().Add(time.Minute)}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, c); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}
