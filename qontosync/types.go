package qontosync

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PageMeta is the pagination envelope of Qonto list endpoints. totalPages
// and totalCount are not guaranteed to be present.
type PageMeta struct {
	CurrentPage int  `json:"current_page"`
	NextPage    *int `json:"next_page"`
	PrevPage    *int `json:"prev_page"`
	TotalPages  *int `json:"total_pages"`
	TotalCount  *int `json:"total_count"`
	PerPage     int  `json:"per_page"`
}

type qontoAmount struct {
	Value    json.Number `json:"value"`
	Currency string      `json:"currency"`
}

func (a qontoAmount) decimal() decimal.Decimal {
	if a.Value.String() == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(a.Value.String()); err == nil {
		return d
	}
	return decimal.Zero
}

type QontoClientRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	VatNumber string `json:"vat_number"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Country   string `json:"country_code"`
}

type QontoClientInvoiceRecord struct {
	ID           string      `json:"id"`
	Number       string      `json:"number"`
	ClientId     string      `json:"client_id"`
	IssueDate    string      `json:"issue_date"`
	DueDate      string      `json:"due_date"`
	Status       string      `json:"status"`
	TotalAmount  qontoAmount `json:"total_amount"`
	VatAmount    qontoAmount `json:"vat_amount"`
	AttachmentId string      `json:"attachment_id"`
}

type qontoSupplierSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Iban string `json:"iban"`
}

type QontoSupplierInvoiceRecord struct {
	ID               string                `json:"id"`
	InvoiceNumber    string                `json:"invoice_number"`
	SupplierName     string                `json:"supplier_name"`
	SupplierSnapshot qontoSupplierSnapshot `json:"supplier_snapshot"`
	IssueDate        string                `json:"issue_date"`
	DueDate          string                `json:"due_date"`
	Status           string                `json:"status"`
	TotalAmount      qontoAmount           `json:"total_amount"`
	VatAmount        qontoAmount           `json:"vat_amount"`
	AttachmentId     string                `json:"attachment_id"`
}

func (r QontoSupplierInvoiceRecord) iban() string {
	return strings.TrimSpace(r.SupplierSnapshot.Iban)
}

// Attachment is the resolution of an opaque attachment id: a time-limited
// signed URL to the underlying document.
type Attachment struct {
	ID              string `json:"id"`
	FileName        string `json:"file_name"`
	FileContentType string `json:"file_content_type"`
	URL             string `json:"url"`
	URLExpiresAt    string `json:"url_expires_at"`
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseDatePtr(value string) *time.Time {
	t := parseDate(value)
	if t.IsZero() {
		return nil
	}
	return &t
}
