package audit

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	VerdictPassed = "PASSED"

	blockedPrefix        = "BLOCKED: "
	outputBlockedPrefix  = "OUTPUT_BLOCKED: "
	failedUpstreamPrefix = "FAILED_UPSTREAM_"
)

func BlockedVerdict(reason string) string {
	if reason == "" {
		reason = "Unknown"
	}
	return blockedPrefix + reason
}

func OutputBlockedVerdict(reason string) string {
	if reason == "" {
		reason = "Unknown"
	}
	return outputBlockedPrefix + reason
}

func FailedUpstreamVerdict(status int) string {
	return fmt.Sprintf("%s%d", failedUpstreamPrefix, status)
}

// Entry is the single durable audit shape: one row per gateway decision.
type Entry struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ClientIP        string         `json:"client_ip" gorm:"index"`
	Model           string         `json:"model"`
	OriginalPrompt  string         `json:"original_prompt"`
	SanitizedPrompt string         `json:"sanitized_prompt"`
	Verdict         string         `json:"verdict" gorm:"index"`
	TriggeredRules  pq.StringArray `json:"triggered_rules" gorm:"type:text[]"`
	LatencyMS       int64          `json:"latency_ms"`
	Metadata        Metadata       `json:"metadata" gorm:"type:jsonb"`
	CreatedAt       time.Time      `json:"created_at" gorm:"index"`
}

func (Entry) TableName() string {
	return "audit_logs"
}

type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported metadata column type %T", value)
	}
}

// Recorder accepts entries from the request path. Implementations must not
// block the caller.
type Recorder interface {
	Record(entry Entry)
}

// Sink persists entries. Sinks run on the audit workers, never on the
// request path.
type Sink interface {
	Name() string
	Write(ctx context.Context, entry Entry) error
	Close()
}

// Store is a queryable sink.
type Store interface {
	Latest(ctx context.Context, limit int) ([]Entry, error)
}
