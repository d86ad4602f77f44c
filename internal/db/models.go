package db

import (
	"encoding/json"
	"time"
)

// Roles assigned to users. The first registered user becomes the admin;
// every later registration gets RoleUser.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	Role        string    `json:"role" db:"role"`
	ReadRights  string    `json:"read_rights" db:"read_rights"`
	WriteRights string    `json:"write_rights" db:"write_rights"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Credential is the stored secret for a user. It never leaves the
// repository layer.
type Credential struct {
	UserID       int64  `json:"-" db:"user_id"`
	PasswordHash string `json:"-" db:"password_hash"`
}

// Prediction is a persisted scoring result. Rows are immutable and owned
// by the user that submitted the feature vector.
type Prediction struct {
	ID        int64           `json:"id" db:"id"`
	OwnerID   int64           `json:"owner_id" db:"owner_id"`
	Features  json.RawMessage `json:"features" db:"features"`
	Severity  float64         `json:"severity" db:"severity"`
	Latitude  float64         `json:"latitude" db:"latitude"`
	Longitude float64         `json:"longitude" db:"longitude"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// RequestLog records one inbound request. Exactly one row exists per
// request accepted by the listener, regardless of outcome.
type RequestLog struct {
	ID             int64         `json:"id" db:"id"`
	RequestID      string        `json:"request_id" db:"request_id"`
	ClientIP       string        `json:"client_ip" db:"client_ip"`
	Endpoint       string        `json:"endpoint" db:"endpoint"`
	Status         int           `json:"status" db:"status"`
	InputData      string        `json:"input_data" db:"input_data"`
	OutputData     string        `json:"output_data" db:"output_data"`
	StartedAt      time.Time     `json:"started_at" db:"started_at"`
	ProcessingTime time.Duration `json:"processing_time" db:"processing_time"`
}

// Activity is an append-only audit trail entry tied to a user. Entries
// are removed only when the owning user is deleted.
type Activity struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

type TestResult struct {
	ID        int64     `json:"id" db:"id"`
	TestName  string    `json:"test_name" db:"test_name"`
	Result    bool      `json:"result" db:"result"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
