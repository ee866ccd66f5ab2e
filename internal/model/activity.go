package model

import "time"

// ActivityLog records one API interaction for the wallet activity feed.
type ActivityLog struct {
	ID         string    `json:"id" gorm:"primaryKey;column:id"`
	Wallet     string    `json:"wallet" gorm:"index;column:wallet"`
	Method     string    `json:"method" gorm:"column:method"`
	Path       string    `json:"path" gorm:"column:path"`
	IP         string    `json:"ip" gorm:"column:ip"`
	StatusCode int       `json:"status_code" gorm:"column:status_code"`
	LatencyMs  int64     `json:"latency_ms" gorm:"column:latency_ms"`
	Detail     string    `json:"detail,omitempty" gorm:"column:detail"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
