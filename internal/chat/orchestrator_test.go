package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/walletchat/walletchat/internal/assistant"
	"github.com/walletchat/walletchat/internal/conversation"
	"github.com/walletchat/walletchat/internal/logging"
)

type bufferWriter struct {
	bytes.Buffer
	flushes int
}

func (w *bufferWriter) Flush() error {
	w.flushes++
	return nil
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("client gone") }
func (brokenWriter) Flush() error               { return nil }

type setup struct {
	orch  *Orchestrator
	convs *conversation.Service
	locks *conversation.Locks
	conv  conversation.Conversation
}

func newSetup(t *testing.T, model assistant.Model) *setup {
	t.Helper()
	convs := conversation.NewService(conversation.NewMemoryRepository(nil))
	locks := conversation.NewLocks()
	conv, err := convs.Create(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return &setup{
		orch:  NewOrchestrator(convs, locks, model, time.Second, logging.Discard()),
		convs: convs,
		locks: locks,
		conv:  conv,
	}
}

func (s *setup) messages(t *testing.T) []conversation.Message {
	t.Helper()
	msgs, err := s.convs.Messages(context.Background(), s.conv.ID, "alice")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	return msgs
}

// assertUnlocked fails if the conversation lock is still held.
func (s *setup) assertUnlocked(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlock, err := s.locks.Lock(ctx, s.conv.ID)
	if err != nil {
		t.Fatalf("conversation lock still held: %v", err)
	}
	unlock()
}

func TestRelayPersistsCompletedReply(t *testing.T) {
	model := &assistant.StaticModel{Chunks: []string{"  Hello", ", ", "world!  "}}
	s := newSetup(t, model)

	ex, err := s.orch.Begin(context.Background(), s.conv.ID, "alice", "hi")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	var w bufferWriter
	reply, err := ex.Relay(&w)
	if err != nil {
		t.Fatalf("relay: %v", err)
	}

	if w.String() != "  Hello, world!  " {
		t.Fatalf("unexpected streamed body %q", w.String())
	}
	if w.flushes != 3 {
		t.Fatalf("expected a flush per chunk, got %d", w.flushes)
	}
	if reply.Content != "Hello, world!" || reply.Type != conversation.MessageTypeAI {
		t.Fatalf("unexpected reply %+v", reply)
	}

	msgs := s.messages(t)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hi" || msgs[0].Type != conversation.MessageTypeUser {
		t.Fatalf("unexpected first message %+v", msgs[0])
	}
	if msgs[1].Content != "Hello, world!" || msgs[1].Type != conversation.MessageTypeAI {
		t.Fatalf("unexpected second message %+v", msgs[1])
	}
	s.assertUnlocked(t)
}

func TestBeginPassesPriorHistory(t *testing.T) {
	model := &assistant.StaticModel{Chunks: []string{"ok"}}
	s := newSetup(t, model)
	ctx := context.Background()

	for _, prompt := range []string{"first", "second"} {
		ex, err := s.orch.Begin(ctx, s.conv.ID, "alice", prompt)
		if err != nil {
			t.Fatalf("begin %s: %v", prompt, err)
		}
		if _, err := ex.Relay(&bufferWriter{}); err != nil {
			t.Fatalf("relay %s: %v", prompt, err)
		}
	}

	prompts, histories := model.Calls()
	if len(prompts) != 2 || prompts[1] != "second" {
		t.Fatalf("unexpected prompts %v", prompts)
	}
	if len(histories[0]) != 0 {
		t.Fatalf("first call should have no history, got %+v", histories[0])
	}
	want := []assistant.Turn{{Role: assistant.RoleUser, Content: "first"}, {Role: assistant.RoleAssistant, Content: "ok"}}
	if len(histories[1]) != len(want) {
		t.Fatalf("unexpected history %+v", histories[1])
	}
	for i := range want {
		if histories[1][i] != want[i] {
			t.Fatalf("history[%d]: expected %+v, got %+v", i, want[i], histories[1][i])
		}
	}
}

func TestBeginFailsBeforeFirstChunk(t *testing.T) {
	model := &assistant.StaticModel{Err: errors.New("provider down")}
	s := newSetup(t, model)

	if _, err := s.orch.Begin(context.Background(), s.conv.ID, "alice", "hi"); err == nil {
		t.Fatal("expected begin to fail")
	}
	msgs := s.messages(t)
	if len(msgs) != 1 || msgs[0].Type != conversation.MessageTypeUser {
		t.Fatalf("expected only the user message, got %+v", msgs)
	}
	s.assertUnlocked(t)
}

func TestBeginUnknownConversation(t *testing.T) {
	s := newSetup(t, &assistant.StaticModel{Chunks: []string{"x"}})

	_, err := s.orch.Begin(context.Background(), s.conv.ID, "mallory", "hi")
	if !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(s.messages(t)) != 0 {
		t.Fatal("no message should be stored for a foreign conversation")
	}
	s.assertUnlocked(t)
}

func TestBeginWithoutModel(t *testing.T) {
	s := newSetup(t, nil)

	if _, err := s.orch.Begin(context.Background(), s.conv.ID, "alice", "hi"); !errors.Is(err, assistant.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if _, err := s.orch.Begin(context.Background(), s.conv.ID, "mallory", "hi"); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("ownership must be checked before reporting disabled, got %v", err)
	}
	if len(s.messages(t)) != 0 {
		t.Fatal("no message should be stored while generation is disabled")
	}
	s.assertUnlocked(t)
}

func TestRelayMidStreamFailureIsNotPersisted(t *testing.T) {
	model := &assistant.StaticModel{Chunks: []string{"partial "}, Err: errors.New("connection reset")}
	s := newSetup(t, model)

	ex, err := s.orch.Begin(context.Background(), s.conv.ID, "alice", "hi")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	var w bufferWriter
	if _, err := ex.Relay(&w); err == nil {
		t.Fatal("expected relay to fail")
	}
	if w.String() != "partial " {
		t.Fatalf("expected the partial chunk to reach the client, got %q", w.String())
	}
	if msgs := s.messages(t); len(msgs) != 1 {
		t.Fatalf("partial reply must not be stored, got %+v", msgs)
	}
	s.assertUnlocked(t)
}

func TestRelayClientGoneIsNotPersisted(t *testing.T) {
	s := newSetup(t, &assistant.StaticModel{Chunks: []string{"a", "b"}})

	ex, err := s.orch.Begin(context.Background(), s.conv.ID, "alice", "hi")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := ex.Relay(brokenWriter{}); err == nil {
		t.Fatal("expected relay to fail")
	}
	if msgs := s.messages(t); len(msgs) != 1 {
		t.Fatalf("reply must not be stored after disconnect, got %+v", msgs)
	}
	s.assertUnlocked(t)
}

// stallingModel sends one chunk then waits for its context to end.
type stallingModel struct{}

type stallingStream struct {
	ctx  context.Context
	sent bool
}

func (stallingModel) Stream(ctx context.Context, _ []assistant.Turn, _ string) (assistant.Stream, error) {
	return &stallingStream{ctx: ctx}, nil
}

func (s *stallingStream) Recv() (string, error) {
	if !s.sent {
		s.sent = true
		return "thinking", nil
	}
	<-s.ctx.Done()
	return "", s.ctx.Err()
}

func (s *stallingStream) Close() error { return nil }

func TestRelayModelTimeout(t *testing.T) {
	s := newSetup(t, stallingModel{})
	s.orch.timeout = 20 * time.Millisecond

	ex, err := s.orch.Begin(context.Background(), s.conv.ID, "alice", "hi")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err = ex.Relay(&bufferWriter{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if msgs := s.messages(t); len(msgs) != 1 {
		t.Fatalf("timed out reply must not be stored, got %+v", msgs)
	}
}

func TestRelayEmptyReply(t *testing.T) {
	s := newSetup(t, &assistant.StaticModel{})

	ex, err := s.orch.Begin(context.Background(), s.conv.ID, "alice", "hi")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	var w bufferWriter
	reply, err := ex.Relay(&w)
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if w.Len() != 0 || reply.Content != "" {
		t.Fatalf("expected empty reply, got %q / %+v", w.String(), reply)
	}
}

func TestAbortReleasesLock(t *testing.T) {
	s := newSetup(t, &assistant.StaticModel{Chunks: []string{"a"}})
	ex, err := s.orch.Begin(context.Background(), s.conv.ID, "alice", "hi")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ex.Abort()
	ex.Abort()
	s.assertUnlocked(t)
}

func TestConcurrentSendsStayPaired(t *testing.T) {
	model := &assistant.StaticModel{Chunks: []string{"re", "ply"}}
	s := newSetup(t, model)
	const senders = 20

	var wg sync.WaitGroup
	errs := make(chan error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ex, err := s.orch.Begin(context.Background(), s.conv.ID, "alice", fmt.Sprintf("prompt %d", i))
			if err != nil {
				errs <- err
				return
			}
			var w bufferWriter
			if _, err := ex.Relay(&w); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("send: %v", err)
	}

	msgs := s.messages(t)
	if len(msgs) != 2*senders {
		t.Fatalf("expected %d messages, got %d", 2*senders, len(msgs))
	}
	for i, m := range msgs {
		want := conversation.MessageTypeUser
		if i%2 == 1 {
			want = conversation.MessageTypeAI
		}
		if m.Type != want {
			t.Fatalf("message %d: expected %s, got %s (%q)", i, want, m.Type, m.Content)
		}
	}

	// Each prompt saw every earlier exchange, so histories grow by one pair per turn.
	_, histories := model.Calls()
	for i, h := range histories {
		if len(h) != 2*i {
			t.Fatalf("call %d: expected %d prior turns, got %d", i, 2*i, len(h))
		}
	}
	s.assertUnlocked(t)
}
