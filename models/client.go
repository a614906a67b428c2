package models

import (
	"time"
)

// Client mirrors a Qonto client record. ExternalId is the reconciliation
// key; locally created clients have none, so the column stays nullable and
// unique among non-null values.
type Client struct {
	ID         int        `gorm:"primary_key" json:"id"`
	ExternalId *string    `gorm:"uniqueIndex;size:128" json:"external_id"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	Email      string     `gorm:"size:255" json:"email"`
	Phone      string     `gorm:"size:50" json:"phone"`
	VatNumber  string     `gorm:"size:50" json:"vat_number"`
	Address    string     `gorm:"size:500" json:"address"`
	City       string     `gorm:"size:100" json:"city"`
	Country    string     `gorm:"size:10" json:"country"`
	LastSyncAt *time.Time `json:"last_sync_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
