package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/inboxgraph/backend/pkg/ai"
	"github.com/inboxgraph/backend/pkg/common"
	"github.com/inboxgraph/backend/pkg/mail"
)

// stubAIClient returns canned structured responses keyed by schema name.
type stubAIClient struct {
	profileJSON      string
	relationshipJSON string
	formatErr        error
	embedding        []float32
	embedErr         error

	mu          sync.Mutex
	formatCalls int
}

func (s *stubAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	s.mu.Lock()
	s.formatCalls++
	s.mu.Unlock()

	if s.formatErr != nil {
		return s.formatErr
	}

	switch name {
	case "participant_profile":
		return json.Unmarshal([]byte(s.profileJSON), out)
	case "relationship_analysis":
		return json.Unmarshal([]byte(s.relationshipJSON), out)
	}
	return fmt.Errorf("unexpected schema %q", name)
}

func (s *stubAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return s.embedding, nil
}

func (s *stubAIClient) ResetMetrics()               {}
func (s *stubAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

// memStore is an in-memory MailStorage for pipeline tests.
type memStore struct {
	mu            sync.Mutex
	emails        map[string][]common.NormalizedEmail
	profiles      map[string]common.Profile
	relationships map[string]common.Relationship

	saveEmailsErr error
	upsertRelErr  error
}

func newMemStore() *memStore {
	return &memStore{
		emails:        make(map[string][]common.NormalizedEmail),
		profiles:      make(map[string]common.Profile),
		relationships: make(map[string]common.Relationship),
	}
}

func (m *memStore) SaveEmails(ctx context.Context, runID string, emails []common.NormalizedEmail) error {
	if m.saveEmailsErr != nil {
		return m.saveEmailsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[runID] = append(m.emails[runID], emails...)
	return nil
}

func (m *memStore) EmailsByRun(ctx context.Context, runID string) ([]common.NormalizedEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emails[runID], nil
}

func (m *memStore) RecentEmails(ctx context.Context, limit int) ([]common.NormalizedEmail, error) {
	return nil, nil
}

func (m *memStore) DistinctParticipants(ctx context.Context) ([]common.Participant, error) {
	return nil, nil
}

func (m *memStore) UpsertProfile(ctx context.Context, profile common.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.Email] = profile
	return nil
}

func (m *memStore) ListProfiles(ctx context.Context) ([]common.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []common.Profile
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) UpsertRelationship(ctx context.Context, rel common.Relationship) error {
	if m.upsertRelErr != nil {
		return m.upsertRelErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	source, target := common.PairKey(rel.Source, rel.Target)
	m.relationships[source+"|"+target] = rel
	return nil
}

func (m *memStore) ListRelationships(ctx context.Context) ([]common.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []common.Relationship
	for _, rel := range m.relationships {
		out = append(out, rel)
	}
	return out, nil
}

func testStubAI() *stubAIClient {
	return &stubAIClient{
		profileJSON: `{
			"characteristics": "Organized and proactive",
			"demeanor": "Friendly",
			"interests": ["travel"],
			"personality_traits": ["curious"],
			"communication_style": "Direct"
		}`,
		relationshipJSON: `{
			"shared_interests": ["travel"],
			"connection_points": ["trip planning"],
			"relationship_strength": {"score": 7, "reasoning": "Frequent direct exchanges"}
		}`,
	}
}

func testMessages() []mail.RawMessage {
	return []mail.RawMessage{
		plainMessage("m1", "t1", "alice@example.com", "bob@example.com", "Trip", "shall we book?", 1700000000000),
		plainMessage("m2", "t2", "bob@example.com", "alice@example.com", "Re: Trip", "yes, next week", 1700000100000),
		plainMessage("m3", "t3", "alice@example.com", "carol@example.com", "Slides", "draft attached", 1700000200000),
	}
}

func collectEvents(events <-chan Event) []Event {
	var out []Event
	for event := range events {
		out = append(out, event)
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{BatchSize: 2})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	st := newMemStore()
	events := client.Run(context.Background(), RunParams{
		RunID:    "run-1",
		Messages: testMessages(),
		AI:       testStubAI(),
		Store:    st,
	})
	collected := collectEvents(events)

	for _, event := range collected {
		if event.Type == EventError {
			t.Fatalf("Run() emitted error event: %s", event.Error.Message)
		}
	}

	if got := len(st.emails["run-1"]); got != 3 {
		t.Fatalf("Run() persisted %d emails, want 3", got)
	}

	for _, email := range []string{"alice@example.com", "bob@example.com", "carol@example.com"} {
		if _, ok := st.profiles[email]; !ok {
			t.Fatalf("Run() missing profile for %s", email)
		}
	}
	if len(st.profiles) != 3 {
		t.Fatalf("Run() stored %d profiles, want 3", len(st.profiles))
	}

	aliceBob, ok := st.relationships["alice@example.com|bob@example.com"]
	if !ok {
		t.Fatalf("Run() missing alice/bob relationship")
	}
	if aliceBob.EmailCount != 2 {
		t.Fatalf("Run() alice/bob emailCount = %d, want 2", aliceBob.EmailCount)
	}
	if aliceBob.Strength.Score != 7 {
		t.Fatalf("Run() alice/bob score = %d, want 7", aliceBob.Strength.Score)
	}

	aliceCarol, ok := st.relationships["alice@example.com|carol@example.com"]
	if !ok {
		t.Fatalf("Run() missing alice/carol relationship")
	}
	if aliceCarol.EmailCount != 1 {
		t.Fatalf("Run() alice/carol emailCount = %d, want 1", aliceCarol.EmailCount)
	}

	if _, ok := st.relationships["bob@example.com|carol@example.com"]; ok {
		t.Fatalf("Run() created edge for non-interacting pair bob/carol")
	}

	for key := range st.relationships {
		var rel = st.relationships[key]
		if rel.Source == rel.Target {
			t.Fatalf("Run() created self-loop for %s", rel.Source)
		}
		if rel.Source > rel.Target {
			t.Fatalf("Run() stored pair out of canonical order: %s/%s", rel.Source, rel.Target)
		}
	}
}

func TestRun_ProgressEvents(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{BatchSize: 2})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	events := client.Run(context.Background(), RunParams{
		RunID:    "run-1",
		Messages: testMessages(),
		AI:       testStubAI(),
		Store:    newMemStore(),
	})
	collected := collectEvents(events)

	var emailEvents []*EmailsProgress
	var relEvents []*RelationshipProgress
	for _, event := range collected {
		switch event.Type {
		case EventEmails:
			emailEvents = append(emailEvents, event.Emails)
		case EventRelationship:
			relEvents = append(relEvents, event.Relationship)
		}
	}

	if len(emailEvents) != 2 {
		t.Fatalf("Run() emitted %d email events, want 2", len(emailEvents))
	}
	last := emailEvents[len(emailEvents)-1]
	if last.Processed != 3 || last.Total != 3 {
		t.Fatalf("Run() final email progress = %d/%d, want 3/3", last.Processed, last.Total)
	}

	// 3 participants -> 3 unordered pairs, every pair reported including the
	// skipped non-interacting one.
	if len(relEvents) != 3 {
		t.Fatalf("Run() emitted %d relationship events, want 3", len(relEvents))
	}
	maxProcessed := 0
	withLatest := 0
	for _, progress := range relEvents {
		if progress.Total != 3 {
			t.Fatalf("Run() relationship total = %d, want 3", progress.Total)
		}
		if progress.Processed > maxProcessed {
			maxProcessed = progress.Processed
		}
		if progress.Latest != nil {
			withLatest++
		}
	}
	if maxProcessed != 3 {
		t.Fatalf("Run() max processed pairs = %d, want 3", maxProcessed)
	}
	if withLatest != 2 {
		t.Fatalf("Run() relationship events with payload = %d, want 2", withLatest)
	}
}

func TestRun_StoreFailureIsTerminal(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	st := newMemStore()
	st.saveEmailsErr = errors.New("connection refused")

	events := client.Run(context.Background(), RunParams{
		RunID:    "run-1",
		Messages: testMessages(),
		AI:       testStubAI(),
		Store:    st,
	})
	collected := collectEvents(events)

	if len(collected) == 0 {
		t.Fatalf("Run() emitted no events")
	}
	last := collected[len(collected)-1]
	if last.Type != EventError {
		t.Fatalf("Run() last event type = %q, want %q", last.Type, EventError)
	}
	if last.Error == nil || last.Error.Message == "" {
		t.Fatalf("Run() error event missing message")
	}
}

func TestRun_AIFailureDegradesToFallback(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{MaxRetries: 1})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	stub := testStubAI()
	stub.formatErr = errors.New("model overloaded")

	st := newMemStore()
	events := client.Run(context.Background(), RunParams{
		RunID:    "run-1",
		Messages: testMessages(),
		AI:       stub,
		Store:    st,
	})
	for _, event := range collectEvents(events) {
		if event.Type == EventError {
			t.Fatalf("Run() emitted terminal error for per-item AI failure: %s", event.Error.Message)
		}
	}

	profile, ok := st.profiles["alice@example.com"]
	if !ok {
		t.Fatalf("Run() missing fallback profile for alice")
	}
	if profile.Characteristics != FallbackCharacteristics {
		t.Fatalf("Run() fallback characteristics = %q, want %q", profile.Characteristics, FallbackCharacteristics)
	}

	rel, ok := st.relationships["alice@example.com|bob@example.com"]
	if !ok {
		t.Fatalf("Run() missing fallback relationship for alice/bob")
	}
	if rel.Strength.Score != 1 {
		t.Fatalf("Run() fallback score = %d, want 1", rel.Strength.Score)
	}
	if len(rel.SharedInterests) != 1 || rel.SharedInterests[0] != FallbackSharedInterest {
		t.Fatalf("Run() fallback shared interests = %v", rel.SharedInterests)
	}
}

func TestRun_UpsertIdempotent(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	st := newMemStore()
	params := RunParams{
		RunID:    "run-1",
		Messages: testMessages(),
		AI:       testStubAI(),
		Store:    st,
	}

	collectEvents(client.Run(context.Background(), params))
	if len(st.relationships) != 2 {
		t.Fatalf("first Run() stored %d relationships, want 2", len(st.relationships))
	}

	if err := client.Reanalyze(context.Background(), "run-1", testStubAI(), st); err != nil {
		t.Fatalf("Reanalyze() error = %v", err)
	}
	if len(st.relationships) != 2 {
		t.Fatalf("Reanalyze() stored %d relationships, want 2", len(st.relationships))
	}
	if len(st.profiles) != 3 {
		t.Fatalf("Reanalyze() stored %d profiles, want 3", len(st.profiles))
	}
}

func TestRun_ArchiverRecordsRawKeys(t *testing.T) {
	client, err := NewGraphClient(NewGraphClientParams{})
	if err != nil {
		t.Fatalf("NewGraphClient() error = %v", err)
	}

	st := newMemStore()
	events := client.Run(context.Background(), RunParams{
		RunID:    "run-1",
		Messages: testMessages(),
		AI:       testStubAI(),
		Store:    st,
		Archiver: archiveFunc(func(ctx context.Context, runID string, msg mail.RawMessage) (string, error) {
			if msg.ID == "m2" {
				return "", errors.New("bucket unavailable")
			}
			return "runs/" + runID + "/raw/" + msg.ID + ".json", nil
		}),
	})
	for _, event := range collectEvents(events) {
		if event.Type == EventError {
			t.Fatalf("Run() archive failure must not be terminal: %s", event.Error.Message)
		}
	}

	keys := make(map[string]string)
	for _, email := range st.emails["run-1"] {
		keys[email.MessageID] = email.RawKey
	}
	if keys["m1"] != "runs/run-1/raw/m1.json" {
		t.Fatalf("Run() rawKey for m1 = %q", keys["m1"])
	}
	if keys["m2"] != "" {
		t.Fatalf("Run() rawKey for failed archive = %q, want empty", keys["m2"])
	}
}

type archiveFunc func(ctx context.Context, runID string, msg mail.RawMessage) (string, error)

func (f archiveFunc) ArchiveMessage(ctx context.Context, runID string, msg mail.RawMessage) (string, error) {
	return f(ctx, runID, msg)
}
