package apikey

import (
	"time"

	"github.com/lib/pq"
)

type APIKeyStatus string

const (
	APIKeyStatusActive  APIKeyStatus = "active"
	APIKeyStatusRevoked APIKeyStatus = "revoked"
	APIKeyStatusExpired APIKeyStatus = "expired"
)

type APIKey struct {
	ID           string         `gorm:"column:id;primaryKey"`
	CooperatorID string         `gorm:"column:cooperator_id;not null;index"`
	KeyID        string         `gorm:"column:key_id;uniqueIndex;not null"` // e.g. sbk_live_xxx
	Name         string         `gorm:"column:name"`
	SecretHash   string         `gorm:"column:secret_hash;not null"` // bcrypt hash, never the plaintext
	Scopes       pq.StringArray `gorm:"column:scopes;type:text[]"`
	Status       string         `gorm:"column:status;default:'active';not null"`
	ExpiresAt    *time.Time     `gorm:"column:expires_at"`
	LastUsedAt   *time.Time     `gorm:"column:last_used_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (APIKey) TableName() string { return "api_keys" }

// Live reports whether the key is usable at instant now: active status and
// either no expiry or an expiry still in the future.
func (k *APIKey) Live(now time.Time) bool {
	if k.Status != string(APIKeyStatusActive) {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}
