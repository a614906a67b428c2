package models

import "testing"

func TestInvoiceStatusCanTransition(t *testing.T) {
	cases := []struct {
		name   string
		from   InvoiceStatus
		to     InvoiceStatus
		manual bool
		want   bool
	}{
		{name: "pipeline assigns pending", from: InvoiceStatusPendingAssignment, to: InvoiceStatusAssigned, want: true},
		{name: "pipeline flags medium", from: InvoiceStatusPendingAssignment, to: InvoiceStatusMediumConfidence, want: true},
		{name: "pipeline flags low", from: InvoiceStatusPendingAssignment, to: InvoiceStatusLowConfidence, want: true},
		{name: "pipeline marks no-match", from: InvoiceStatusPendingAssignment, to: InvoiceStatusNoMatch, want: true},
		{name: "reclassify medium", from: InvoiceStatusMediumConfidence, to: InvoiceStatusAssigned, want: true},
		{name: "reclassify low to no-match", from: InvoiceStatusLowConfidence, to: InvoiceStatusNoMatch, want: true},
		{name: "reclassify no-match", from: InvoiceStatusNoMatch, to: InvoiceStatusMediumConfidence, want: true},
		{name: "pipeline never reopens assigned", from: InvoiceStatusAssigned, to: InvoiceStatusPendingAssignment, want: false},
		{name: "pipeline never leaves assigned", from: InvoiceStatusAssigned, to: InvoiceStatusNoMatch, want: false},
		{name: "pipeline cannot mark non-project", from: InvoiceStatusPendingAssignment, to: InvoiceStatusNonProject, want: false},
		{name: "pipeline cannot revert to pending", from: InvoiceStatusMediumConfidence, to: InvoiceStatusPendingAssignment, want: false},
		{name: "manual assign from pending", from: InvoiceStatusPendingAssignment, to: InvoiceStatusAssigned, manual: true, want: true},
		{name: "manual non-project from low", from: InvoiceStatusLowConfidence, to: InvoiceStatusNonProject, manual: true, want: true},
		{name: "manual assign from no-match", from: InvoiceStatusNoMatch, to: InvoiceStatusAssigned, manual: true, want: true},
		{name: "manual cannot undo assigned", from: InvoiceStatusAssigned, to: InvoiceStatusNonProject, manual: true, want: false},
		{name: "manual cannot force medium", from: InvoiceStatusPendingAssignment, to: InvoiceStatusMediumConfidence, manual: true, want: false},
		{name: "manual resave is no-op", from: InvoiceStatusNoMatch, to: InvoiceStatusNoMatch, manual: true, want: true},
		{name: "reclassify same band medium", from: InvoiceStatusMediumConfidence, to: InvoiceStatusMediumConfidence, want: true},
		{name: "reclassify same band low", from: InvoiceStatusLowConfidence, to: InvoiceStatusLowConfidence, want: true},
		{name: "reclassify same band no-match", from: InvoiceStatusNoMatch, to: InvoiceStatusNoMatch, want: true},
		{name: "pipeline never re-enters pending", from: InvoiceStatusPendingAssignment, to: InvoiceStatusPendingAssignment, want: false},
		{name: "pipeline never resaves assigned", from: InvoiceStatusAssigned, to: InvoiceStatusAssigned, want: false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to, tc.manual); got != tc.want {
			t.Fatalf("%s: CanTransition(%s -> %s, manual=%v) = %v, want %v", tc.name, tc.from, tc.to, tc.manual, got, tc.want)
		}
	}
}

func TestInvoiceStatusTerminal(t *testing.T) {
	for _, s := range []InvoiceStatus{InvoiceStatusAssigned, InvoiceStatusNonProject} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []InvoiceStatus{InvoiceStatusPendingAssignment, InvoiceStatusMediumConfidence, InvoiceStatusLowConfidence, InvoiceStatusNoMatch} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestSyncScopeIncludes(t *testing.T) {
	if !SyncScopeAll.Includes(SyncScopeClients) || !SyncScopeAll.Includes(SyncScopeSupplierInvoices) {
		t.Fatalf("scope all must include every entity")
	}
	if SyncScopeClients.Includes(SyncScopeSupplierInvoices) {
		t.Fatalf("clients scope must not include supplier invoices")
	}
	if !SyncScopeClients.Includes(SyncScopeClients) {
		t.Fatalf("scope must include itself")
	}
	if SyncScope("bogus").Valid() {
		t.Fatalf("bogus scope must be invalid")
	}
}
