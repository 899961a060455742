package graph

import (
	"github.com/inboxgraph/backend/pkg/common"
)

// DedupeThreads collapses multiple normalized emails belonging to the same
// thread into the single most recent one, so a conversation visited several
// times during paginated fetch contributes exactly one record. Timestamp
// ties break last-seen-wins. Emails without a thread ID are keyed by
// message ID and pass through individually. Output preserves first-seen
// thread order.
func DedupeThreads(emails []common.NormalizedEmail) []common.NormalizedEmail {
	type slot struct {
		index int
		email common.NormalizedEmail
	}

	byThread := make(map[string]*slot, len(emails))
	order := make([]string, 0, len(emails))

	for _, email := range emails {
		key := email.ThreadID
		if key == "" {
			key = "msg:" + email.MessageID
		}

		existing, ok := byThread[key]
		if !ok {
			byThread[key] = &slot{index: len(order), email: email}
			order = append(order, key)
			continue
		}
		if !email.Date.Before(existing.email.Date) {
			existing.email = email
		}
	}

	out := make([]common.NormalizedEmail, 0, len(order))
	for _, key := range order {
		out = append(out, byThread[key].email)
	}
	return out
}
