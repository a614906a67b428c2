package invoiceai

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrMissingAPIKey is a configuration error: surfaced before any call
	// is queued, never retried.
	ErrMissingAPIKey = errors.New("anthropic api key is not configured")
	// ErrRateLimited marks an HTTP 429 from the model endpoint. The
	// classification is recorded as failed; recovery is a manual re-trigger.
	ErrRateLimited = errors.New("model endpoint rate limited")
)

// ModelRequest is a single-turn submission to the document model: a prompt
// plus the source document, by signed URL when available or inline base64
// as fallback.
type ModelRequest struct {
	Prompt         string
	DocumentURL    string
	DocumentBase64 string
}

// ModelInvoker performs one call against the document-understanding model
// and returns its free-text response. Implementations do not rate-limit;
// that is the CallQueue's job.
type ModelInvoker interface {
	Invoke(ctx context.Context, req ModelRequest) (string, error)
	ModelID() string
}

// InvoiceDetails is the invoice metadata the model extracts from the
// document. All fields are optional and untrusted.
type InvoiceDetails struct {
	SupplierName string      `json:"supplierName"`
	Amount       looseString `json:"amount"`
	Date         looseString `json:"date"`
	Description  string      `json:"description"`
}

func (d InvoiceDetails) populatedFields() int {
	n := 0
	if strings.TrimSpace(d.SupplierName) != "" {
		n++
	}
	if strings.TrimSpace(string(d.Amount)) != "" {
		n++
	}
	if strings.TrimSpace(string(d.Date)) != "" {
		n++
	}
	if strings.TrimSpace(d.Description) != "" {
		n++
	}
	return n
}

// looseString accepts a JSON string or number. Model output does not
// reliably quote amounts or dates.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*s = looseString(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*s = looseString(asNumber.String())
		return nil
	}
	var asFloat float64
	if err := json.Unmarshal(data, &asFloat); err == nil {
		*s = looseString(strconv.FormatFloat(asFloat, 'f', -1, 64))
		return nil
	}
	*s = ""
	return nil
}
