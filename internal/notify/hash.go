package notify

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/wolfman30/wayloft-concierge/internal/conversation"
)

type hashedSnapshot struct {
	SessionID string                    `json:"sessionId"`
	Stage     conversation.Stage        `json:"stage"`
	Captured  conversation.CapturedLead `json:"captured"`
}

// LeadHash fingerprints a finalized lead. Equal snapshots always hash equal,
// so a replayed turn never produces a second email.
func LeadHash(sessionID string, lead conversation.CapturedLead) string {
	lead = lead.Clone()
	lead.Normalize()
	raw, err := json.Marshal(hashedSnapshot{
		SessionID: sessionID,
		Stage:     conversation.StageCompleted,
		Captured:  lead,
	})
	if err != nil {
		// CapturedLead holds only strings and string slices.
		panic(fmt.Sprintf("notify: marshal lead snapshot: %v", err))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}
