// Package handlers implements the catalog HTTP API.
package handlers

import (
	"media-catalog/internal/database"
	"media-catalog/internal/scanner"
)

type Handlers struct {
	db        *database.Database
	orch      *scanner.Orchestrator
	scheduler *scanner.Scheduler
}

func New(db *database.Database, orch *scanner.Orchestrator, scheduler *scanner.Scheduler) *Handlers {
	return &Handlers{
		db:        db,
		orch:      orch,
		scheduler: scheduler,
	}
}
