package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClientInvoice struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ExternalId   string          `gorm:"uniqueIndex;size:128;not null" json:"external_id"`
	ClientId     *int            `gorm:"index" json:"client_id"`
	Number       string          `gorm:"size:100" json:"number"`
	AmountTotal  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_total"`
	AmountNet    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_net"`
	AmountVat    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_vat"`
	Currency     string          `gorm:"size:10" json:"currency"`
	IssueDate    time.Time       `json:"issue_date"`
	DueDate      *time.Time      `json:"due_date"`
	Status       string          `gorm:"size:30" json:"status"`
	AttachmentId string          `gorm:"size:128" json:"attachment_id"`
	LastSyncAt   *time.Time      `json:"last_sync_at"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
