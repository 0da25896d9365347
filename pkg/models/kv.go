package models

import "time"

// KVEntry backs the Postgres key-value store. Values are JSON documents.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:200"`
	Value     []byte    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KVEntry) TableName() string {
	return "reminder_kv"
}
