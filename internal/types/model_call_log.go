package types

import (
	"time"

	"github.com/google/uuid"
)

// ModelCallLog is the audit row written for every provider invocation made
// through the model selection policy, including the one-shot fallback retry.
type ModelCallLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Alias     string    `gorm:"column:alias;not null;index" json:"alias"`
	Provider  string    `gorm:"column:provider;not null" json:"provider"`
	Model     string    `gorm:"column:model;not null" json:"model"`
	Operation string    `gorm:"column:operation;not null;index" json:"operation"`
	LatencyMS int64     `gorm:"column:latency_ms;not null" json:"latency_ms"`
	Success   bool      `gorm:"column:success;not null" json:"success"`
	Error     string    `gorm:"column:error" json:"error,omitempty"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (ModelCallLog) TableName() string { return "model_call_log" }
