// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	Timestamp     time.Time       `json:"timestamp"`
	Actor         string          `json:"actor"`
	Action        string          `json:"action"`
	ResourceID    string          `json:"resource_id"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}
