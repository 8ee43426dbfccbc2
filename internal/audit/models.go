package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TypeSystemStartup marks the boot entry the audit service writes directly.
// It is an audit event type, not a topic: it never travels on a domain
// stream, and the audit.logged consumer skips it to avoid recording the
// same startup marker twice.
const TypeSystemStartup = "SYSTEM_STARTUP"

// Record is the durable form of an audit-worthy event. Created exactly once
// per record call that reaches the persistence step; never mutated after.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}
