package models

import (
	"errors"
	"fmt"
)

type SyncScope string

const (
	SyncScopeAll              SyncScope = "all"
	SyncScopeClients          SyncScope = "clients"
	SyncScopeClientInvoices   SyncScope = "client_invoices"
	SyncScopeSupplierInvoices SyncScope = "supplier_invoices"
)

func (s SyncScope) Valid() bool {
	switch s {
	case SyncScopeAll, SyncScopeClients, SyncScopeClientInvoices, SyncScopeSupplierInvoices:
		return true
	}
	return false
}

func (s SyncScope) Includes(other SyncScope) bool {
	return s == SyncScopeAll || s == other
}

type SyncRunStatus string

const (
	SyncRunStatusStarted   SyncRunStatus = "started"
	SyncRunStatusCompleted SyncRunStatus = "completed"
	SyncRunStatusFailed    SyncRunStatus = "failed"
)

const (
	SyncTriggeredManual    = "manual"
	SyncTriggeredScheduled = "scheduled"
)

type InvoiceStatus string

const (
	InvoiceStatusPendingAssignment InvoiceStatus = "pending-assignment"
	InvoiceStatusAssigned          InvoiceStatus = "assigned"
	InvoiceStatusMediumConfidence  InvoiceStatus = "medium-confidence"
	InvoiceStatusLowConfidence     InvoiceStatus = "low-confidence"
	InvoiceStatusNoMatch           InvoiceStatus = "no-match"
	InvoiceStatusNonProject        InvoiceStatus = "non-project"
)

var ErrInvalidTransition = errors.New("invalid invoice status transition")

// invoiceTransitions lists the automatic (pipeline) transitions. Manual
// overrides are handled separately by CanTransition.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPendingAssignment: {
		InvoiceStatusAssigned,
		InvoiceStatusMediumConfidence,
		InvoiceStatusLowConfidence,
		InvoiceStatusNoMatch,
	},
	// Re-classification of a reviewed-but-unassigned invoice is allowed.
	InvoiceStatusMediumConfidence: {
		InvoiceStatusAssigned,
		InvoiceStatusMediumConfidence,
		InvoiceStatusLowConfidence,
		InvoiceStatusNoMatch,
	},
	InvoiceStatusLowConfidence: {
		InvoiceStatusAssigned,
		InvoiceStatusMediumConfidence,
		InvoiceStatusLowConfidence,
		InvoiceStatusNoMatch,
	},
	InvoiceStatusNoMatch: {
		InvoiceStatusAssigned,
		InvoiceStatusMediumConfidence,
		InvoiceStatusLowConfidence,
		InvoiceStatusNoMatch,
	},
}

// CanTransition reports whether moving from s to next is legal. Manual
// overrides may force "assigned" or "non-project" from any state except an
// already assigned invoice; automatic transitions follow the pipeline
// table, which includes same-band writes so a re-classification landing on
// the current status stays a legal no-op.
func (s InvoiceStatus) CanTransition(next InvoiceStatus, manual bool) bool {
	if manual {
		if s == next {
			return true // manual re-save of the current status is a no-op
		}
		if s == InvoiceStatusAssigned {
			return false
		}
		return next == InvoiceStatusAssigned || next == InvoiceStatusNonProject
	}
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusAssigned || s == InvoiceStatusNonProject
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPendingAssignment, InvoiceStatusAssigned, InvoiceStatusMediumConfidence,
		InvoiceStatusLowConfidence, InvoiceStatusNoMatch, InvoiceStatusNonProject:
		return true
	}
	return false
}

type AssignmentType string

const (
	AssignmentTypeManual       AssignmentType = "manual"
	AssignmentTypeAIAutoAssign AssignmentType = "ai_auto_assigned"
)

type ProcessingStatus string

const (
	ProcessingStatusSuccess ProcessingStatus = "success"
	ProcessingStatusFailed  ProcessingStatus = "failed"
	ProcessingStatusPartial ProcessingStatus = "partial"
)

// TransitionError builds the error returned when a status mutation is
// rejected by the transition table.
func TransitionError(from, to InvoiceStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
