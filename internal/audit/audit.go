package audit

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
)

// Recorder appends entries to the per-user activity trail.
type Recorder interface {
	Record(ctx context.Context, userID int64, action string) error
}

// StoreRecorder persists activity entries through the repository.
type StoreRecorder struct {
	repo repository.ActivityRepository
}

func NewStoreRecorder(repo repository.ActivityRepository) *StoreRecorder {
	return &StoreRecorder{repo: repo}
}

func (r *StoreRecorder) Record(ctx context.Context, userID int64, action string) error {
	return r.repo.Create(ctx, &db.Activity{UserID: userID, Action: action})
}

var sensitiveKeys = []string{"password", "secret", "token", "api_key"}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// MaskPayload redacts credential material from a request or response body
// snapshot before it reaches the durable request log. JSON objects and
// form-encoded bodies are handled; anything else passes through.
func MaskPayload(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return body
	}

	if strings.HasPrefix(trimmed, "{") {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &m); err == nil {
			changed := false
			for k := range m {
				if isSensitive(k) {
					m[k] = "***REDACTED***"
					changed = true
				}
			}
			if changed {
				if out, err := json.Marshal(m); err == nil {
					return string(out)
				}
			}
			return body
		}
		return body
	}

	if values, err := url.ParseQuery(trimmed); err == nil && len(values) > 0 {
		changed := false
		for k := range values {
			if isSensitive(k) {
				values.Set(k, "***REDACTED***")
				changed = true
			}
		}
		if changed {
			return values.Encode()
		}
	}

	return body
}
