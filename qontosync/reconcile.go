package qontosync

import (
	"errors"
	"strings"
	"time"

	"github.com/ateliernord/finops_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The reconcilers perform insert-or-update keyed by external id. They are
// idempotent: re-running a sync with unchanged external data causes no net
// mutation beyond a refreshed last_sync_at. Inserts are guarded with
// ON CONFLICT DO NOTHING plus a re-read, so two racing reconciles for the
// same external id (overlapping manual and scheduled syncs) converge on a
// single row.

func mapClient(raw QontoClientRecord) models.Client {
	externalId := strings.TrimSpace(raw.ID)
	return models.Client{
		ExternalId: &externalId,
		Name:       strings.TrimSpace(raw.Name),
		Email:      strings.TrimSpace(raw.Email),
		Phone:      strings.TrimSpace(raw.Phone),
		VatNumber:  strings.TrimSpace(raw.VatNumber),
		Address:    strings.TrimSpace(raw.Address),
		City:       strings.TrimSpace(raw.City),
		Country:    strings.TrimSpace(raw.Country),
	}
}

func mapClientInvoice(raw QontoClientInvoiceRecord) models.ClientInvoice {
	total := raw.TotalAmount.decimal()
	vat := raw.VatAmount.decimal()
	return models.ClientInvoice{
		ExternalId:   strings.TrimSpace(raw.ID),
		Number:       strings.TrimSpace(raw.Number),
		AmountTotal:  total,
		AmountNet:    total.Sub(vat),
		AmountVat:    vat,
		Currency:     strings.TrimSpace(raw.TotalAmount.Currency),
		IssueDate:    parseDate(raw.IssueDate),
		DueDate:      parseDatePtr(raw.DueDate),
		Status:       strings.TrimSpace(raw.Status),
		AttachmentId: strings.TrimSpace(raw.AttachmentId),
	}
}

func mapSupplierInvoice(raw QontoSupplierInvoiceRecord) models.SupplierInvoice {
	total := raw.TotalAmount.decimal()
	vat := raw.VatAmount.decimal()
	name := strings.TrimSpace(raw.SupplierName)
	if name == "" {
		name = strings.TrimSpace(raw.SupplierSnapshot.Name)
	}
	return models.SupplierInvoice{
		ExternalId:    strings.TrimSpace(raw.ID),
		SupplierName:  name,
		SupplierIban:  raw.iban(),
		InvoiceNumber: strings.TrimSpace(raw.InvoiceNumber),
		AmountTotal:   total,
		AmountNet:     total.Sub(vat),
		AmountVat:     vat,
		Currency:      strings.TrimSpace(raw.TotalAmount.Currency),
		InvoiceDate:   parseDate(raw.IssueDate),
		DueDate:       parseDatePtr(raw.DueDate),
		Status:        models.InvoiceStatusPendingAssignment,
	}
}

func reconcileClient(db *gorm.DB, raw QontoClientRecord) (int, bool, error) {
	mapped := mapClient(raw)
	now := time.Now()

	var existing models.Client
	err := db.Where("external_id = ?", *mapped.ExternalId).Take(&existing).Error
	if err == nil {
		updateErr := db.Model(&existing).Updates(map[string]interface{}{
			"name":         mapped.Name,
			"email":        mapped.Email,
			"phone":        mapped.Phone,
			"vat_number":   mapped.VatNumber,
			"address":      mapped.Address,
			"city":         mapped.City,
			"country":      mapped.Country,
			"last_sync_at": now,
		}).Error
		return existing.ID, false, updateErr
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	mapped.LastSyncAt = &now
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&mapped)
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost an insert race; the other writer's row wins.
		if err := db.Where("external_id = ?", *mapped.ExternalId).Take(&existing).Error; err != nil {
			return 0, false, err
		}
		return existing.ID, false, nil
	}
	return mapped.ID, true, nil
}

func reconcileClientInvoice(db *gorm.DB, raw QontoClientInvoiceRecord, clientIdByExternal map[string]int) (int, bool, error) {
	mapped := mapClientInvoice(raw)
	now := time.Now()
	if id, ok := clientIdByExternal[strings.TrimSpace(raw.ClientId)]; ok {
		mapped.ClientId = &id
	}

	var existing models.ClientInvoice
	err := db.Where("external_id = ?", mapped.ExternalId).Take(&existing).Error
	if err == nil {
		updates := map[string]interface{}{
			"number":        mapped.Number,
			"amount_total":  mapped.AmountTotal,
			"amount_net":    mapped.AmountNet,
			"amount_vat":    mapped.AmountVat,
			"currency":      mapped.Currency,
			"issue_date":    mapped.IssueDate,
			"due_date":      mapped.DueDate,
			"status":        mapped.Status,
			"attachment_id": mapped.AttachmentId,
			"last_sync_at":  now,
		}
		if mapped.ClientId != nil {
			updates["client_id"] = mapped.ClientId
		}
		return existing.ID, false, db.Model(&existing).Updates(updates).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	mapped.LastSyncAt = &now
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&mapped)
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		if err := db.Where("external_id = ?", mapped.ExternalId).Take(&existing).Error; err != nil {
			return 0, false, err
		}
		return existing.ID, false, nil
	}
	return mapped.ID, true, nil
}

// reconcileSupplierInvoice applies the project-partner eligibility filter
// before touching the store: suppliers without a bank IBAN are general
// expenses, skipped entirely and counted separately. Status and
// is_processed stay untouched on update; they belong to the classification
// pipeline.
func reconcileSupplierInvoice(db *gorm.DB, raw QontoSupplierInvoiceRecord) (localId int, created bool, skipped bool, err error) {
	if raw.iban() == "" {
		return 0, false, true, nil
	}

	mapped := mapSupplierInvoice(raw)
	now := time.Now()

	var existing models.SupplierInvoice
	err = db.Where("external_id = ?", mapped.ExternalId).Take(&existing).Error
	if err == nil {
		updateErr := db.Model(&existing).Updates(map[string]interface{}{
			"supplier_name":  mapped.SupplierName,
			"supplier_iban":  mapped.SupplierIban,
			"invoice_number": mapped.InvoiceNumber,
			"amount_total":   mapped.AmountTotal,
			"amount_net":     mapped.AmountNet,
			"amount_vat":     mapped.AmountVat,
			"currency":       mapped.Currency,
			"invoice_date":   mapped.InvoiceDate,
			"due_date":       mapped.DueDate,
			"attachment_id":  strings.TrimSpace(raw.AttachmentId),
			"last_sync_at":   now,
		}).Error
		return existing.ID, false, false, updateErr
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, false, err
	}

	mapped.AttachmentId = strings.TrimSpace(raw.AttachmentId)
	mapped.LastSyncAt = &now
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&mapped)
	if res.Error != nil {
		return 0, false, false, res.Error
	}
	if res.RowsAffected == 0 {
		if err := db.Where("external_id = ?", mapped.ExternalId).Take(&existing).Error; err != nil {
			return 0, false, false, err
		}
		return existing.ID, false, false, nil
	}
	return mapped.ID, true, false, nil
}
