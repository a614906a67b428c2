package models

import (
	"time"

	"gorm.io/gorm"
)

// ExternalSyncRun records one end-to-end sync against the Qonto API. A run
// row is owned by the goroutine that created it until it reaches a terminal
// status; it is never mutated concurrently.
type ExternalSyncRun struct {
	ID               uint          `gorm:"primary_key" json:"id"`
	EntityScope      SyncScope     `gorm:"size:30;not null" json:"entity_scope"`
	Status           SyncRunStatus `gorm:"size:20;not null" json:"status"`
	TriggeredBy      string        `gorm:"size:20" json:"triggered_by"`
	RecordsProcessed int           `json:"records_processed"`
	RecordsCreated   int           `json:"records_created"`
	RecordsUpdated   int           `json:"records_updated"`
	RecordsSkipped   int           `json:"records_skipped"`
	ErrorMessage     string        `gorm:"type:text" json:"error_message"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      *time.Time    `json:"completed_at"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func CreateSyncRun(db *gorm.DB, scope SyncScope, triggeredBy string) (*ExternalSyncRun, error) {
	run := ExternalSyncRun{
		EntityScope: scope,
		Status:      SyncRunStatusStarted,
		TriggeredBy: triggeredBy,
		StartedAt:   time.Now(),
	}
	if err := db.Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Finish moves the run to a terminal status and persists the final counters.
func (r *ExternalSyncRun) Finish(db *gorm.DB, status SyncRunStatus, errMsg string) error {
	now := time.Now()
	r.Status = status
	r.ErrorMessage = errMsg
	r.CompletedAt = &now
	return db.Model(r).Updates(map[string]interface{}{
		"status":            status,
		"error_message":     errMsg,
		"records_processed": r.RecordsProcessed,
		"records_created":   r.RecordsCreated,
		"records_updated":   r.RecordsUpdated,
		"records_skipped":   r.RecordsSkipped,
		"completed_at":      now,
	}).Error
}

// SyncRecordError is a per-record failure captured during a run. Record
// level failures never abort the run; they are diagnosable afterwards.
type SyncRecordError struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	SyncRunId  uint      `gorm:"index;not null" json:"sync_run_id"`
	EntityType string    `gorm:"size:50" json:"entity_type"`
	ExternalId string    `gorm:"size:128" json:"external_id"`
	ErrorCode  string    `gorm:"size:64" json:"error_code"`
	Message    string    `gorm:"type:text" json:"message"`
	Retryable  bool      `gorm:"default:false" json:"retryable"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateSyncRecordError(db *gorm.DB, runId uint, entityType, externalId, code, message string, retryable bool) error {
	rec := SyncRecordError{
		SyncRunId:  runId,
		EntityType: entityType,
		ExternalId: externalId,
		ErrorCode:  code,
		Message:    message,
		Retryable:  retryable,
	}
	return db.Create(&rec).Error
}
