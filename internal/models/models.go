package models

import (
	"encoding/json"
	"time"
)

// SessionState is the persisted form of one wizard session. Snapshot holds
// the serialized wizard; TempData carries frontend bookkeeping such as the
// chat message that shows the calendar.
type SessionState struct {
	SessionID   string                 `json:"session_id"`
	CurrentStep int                    `json:"current_step"`
	Snapshot    json.RawMessage        `json:"snapshot,omitempty"`
	TempData    map[string]interface{} `json:"temp_data,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func (s *SessionState) GetInt64(key string) int64 {
	if s.TempData == nil {
		return 0
	}
	val, ok := s.TempData[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

func (s *SessionState) GetTime(key string) time.Time {
	if s.TempData == nil {
		return time.Time{}
	}
	val, ok := s.TempData[key]
	if !ok {
		return time.Time{}
	}
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

func (s *SessionState) GetString(key string) string {
	if s.TempData == nil {
		return ""
	}
	val, ok := s.TempData[key]
	if !ok {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}
