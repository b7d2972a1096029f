package model

import (
	"gorm.io/datatypes"
)

// AlertModel maps to 'alerts': one delivered (or attempted) match notification.
type AlertModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	AlertID       string         `gorm:"column:alert_id;uniqueIndex"`
	CycleID       string         `gorm:"column:cycle_id;index"`
	Chain         string         `gorm:"column:chain;index:idx_alert_token,priority:1"`
	Address       string         `gorm:"column:address;index:idx_alert_token,priority:2"`
	Symbol        string         `gorm:"column:symbol"`
	Message       string         `gorm:"column:message;type:TEXT"`
	Payload       datatypes.JSON `gorm:"column:payload;type:TEXT"`
	Recipients    int            `gorm:"column:recipients"`
	Delivered     int            `gorm:"column:delivered"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (AlertModel) TableName() string { return "alerts" }

// CycleModel maps to 'scan_cycles': the summary of one scan cycle.
type CycleModel struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	CycleID        string         `gorm:"column:cycle_id;uniqueIndex"`
	StartedAtUnix  int64          `gorm:"column:started_at;index"`
	FinishedAtUnix int64          `gorm:"column:finished_at"`
	Candidates     int            `gorm:"column:candidates"`
	Matches        int            `gorm:"column:matches"`
	FailedChains   string         `gorm:"column:failed_chains"`
	Report         datatypes.JSON `gorm:"column:report;type:TEXT"`
}

func (CycleModel) TableName() string { return "scan_cycles" }

// SubscriberModel maps to 'subscribers': chats receiving alerts.
type SubscriberModel struct {
	ChatID        int64 `gorm:"column:chat_id;primaryKey;autoIncrement:false"`
	CreatedAtUnix int64 `gorm:"column:created_at"`
}

func (SubscriberModel) TableName() string { return "subscribers" }
