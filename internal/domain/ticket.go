package domain

import "time"

// TicketStatus enumerates the citizen-facing complaint lifecycle.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

// Ticket is a citizen-reported infrastructure issue. Status only moves
// forward; AssignedTo is set exactly while the ticket is assigned or later.
type Ticket struct {
	ID              string
	TicketID        string // external key, TCK-XXXXXXXX
	CitizenID       string
	AssignedTo      string
	AssignedBy      string
	ResolvedBy      string
	Title           string
	Description     string
	IssueType       string
	Department      string
	Ward            string
	Status          TicketStatus
	ResolutionNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	AssignedAt      *time.Time
	InProgressAt    *time.Time
	ResolvedAt      *time.Time
}
