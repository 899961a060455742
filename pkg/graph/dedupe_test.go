package graph

import (
	"testing"
	"time"

	"github.com/inboxgraph/backend/pkg/common"
)

func emailAt(id, threadID string, date time.Time) common.NormalizedEmail {
	return common.NormalizedEmail{
		MessageID: id,
		ThreadID:  threadID,
		Sender:    common.Address{Email: "alice@example.com"},
		Date:      date,
	}
}

func TestDedupeThreads(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		emails  []common.NormalizedEmail
		wantIDs []string
	}{
		{
			name: "distinct threads pass through",
			emails: []common.NormalizedEmail{
				emailAt("m1", "t1", base),
				emailAt("m2", "t2", base.Add(time.Hour)),
			},
			wantIDs: []string{"m1", "m2"},
		},
		{
			name: "newest wins within thread",
			emails: []common.NormalizedEmail{
				emailAt("m1", "t1", base.Add(2*time.Hour)),
				emailAt("m2", "t1", base),
				emailAt("m3", "t1", base.Add(time.Hour)),
			},
			wantIDs: []string{"m1"},
		},
		{
			name: "timestamp tie breaks last seen",
			emails: []common.NormalizedEmail{
				emailAt("m1", "t1", base),
				emailAt("m2", "t1", base),
			},
			wantIDs: []string{"m2"},
		},
		{
			name: "missing thread id keyed by message id",
			emails: []common.NormalizedEmail{
				emailAt("m1", "", base),
				emailAt("m2", "", base),
			},
			wantIDs: []string{"m1", "m2"},
		},
		{
			name: "first seen thread order preserved",
			emails: []common.NormalizedEmail{
				emailAt("m1", "t1", base),
				emailAt("m2", "t2", base),
				emailAt("m3", "t1", base.Add(time.Hour)),
			},
			wantIDs: []string{"m3", "m2"},
		},
		{
			name:    "empty input",
			emails:  nil,
			wantIDs: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DedupeThreads(tc.emails)
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("DedupeThreads() kept %d emails, want %d", len(got), len(tc.wantIDs))
			}
			for i, email := range got {
				if email.MessageID != tc.wantIDs[i] {
					t.Fatalf("DedupeThreads()[%d] = %q, want %q", i, email.MessageID, tc.wantIDs[i])
				}
			}
		})
	}
}
