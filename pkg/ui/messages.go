package ui

import (
	"time"

	"github.com/fd1az/omniroute/business/routing/domain"
)

// QuoteMsg carries the outcome of one quote round.
type QuoteMsg struct {
	Result  *domain.QuoteResult
	Err     error
	Latency time.Duration
	At      time.Time
}

// TickMsg schedules the next quote round.
type TickMsg struct {
	At time.Time
}

// StatusMsg reports a dependency's health.
type StatusMsg struct {
	Name    string
	Healthy bool
	Message string
}
