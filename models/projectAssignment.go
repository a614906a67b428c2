package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectAssignment attributes (part of) a supplier invoice to a project.
// Several assignments may exist per invoice for split billing; callers keep
// the sum of AmountAssigned equal to the invoice total.
type ProjectAssignment struct {
	ID                uint            `gorm:"primary_key" json:"id"`
	SupplierInvoiceId int             `gorm:"index;not null" json:"supplier_invoice_id"`
	ProjectId         int             `gorm:"index;not null" json:"project_id"`
	AmountAssigned    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_assigned"`
	Percentage        decimal.Decimal `gorm:"type:decimal(7,4);default:0" json:"percentage"`
	AssignmentType    AssignmentType  `gorm:"size:30;not null" json:"assignment_type"`
	AssignedBy        string          `gorm:"size:100" json:"assigned_by"`
	AssignedAt        time.Time       `json:"assigned_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
