package httpapi

import (
	"net/http"

	"github.com/custodia-labs/actharvest/internal/core/ports/driving"
)

// Ports aggregates the services the API exposes.
type Ports struct {
	Acts     driving.ActService
	Ingestor driving.Ingestor
	Runs     driving.RunAuditor
	Tokens   *Tokens

	// Pipeline and Scheduler are optional; their routes answer 503 without them.
	Pipeline  driving.Pipeline
	Scheduler driving.Scheduler

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Acts == nil:
		return ErrMissingActService
	case p.Ingestor == nil:
		return ErrMissingIngestor
	case p.Runs == nil:
		return ErrMissingAuditor
	case p.Tokens == nil:
		return ErrMissingTokens
	}
	return nil
}
