// Package handlers is the HTTP surface: JSON in, JSON (or files) out.
package handlers

import (
	"p9e.in/verifyops/pkg/accounts"
	"p9e.in/verifyops/pkg/casework"
	"p9e.in/verifyops/pkg/evidence"
	"p9e.in/verifyops/pkg/reports"
)

// MaxExportRows caps list exports.
const MaxExportRows = 10000

// App holds the services the handlers call, so they can be swapped in tests.
type App struct {
	Cases    *casework.Service
	Accounts *accounts.Service
	Exporter *reports.Exporter
	Evidence evidence.Store
}

func New(cases *casework.Service, acc *accounts.Service, exp *reports.Exporter, ev evidence.Store) *App {
	return &App{Cases: cases, Accounts: acc, Exporter: exp, Evidence: ev}
}
