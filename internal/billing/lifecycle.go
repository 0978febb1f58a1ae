package billing

import (
	"gstbill/internal/apperrors"
	"gstbill/internal/models"
)

// Event triggers an invoice status transition.
type Event string

const (
	EventIssue    Event = "issue"
	EventMarkPaid Event = "markPaid"
	EventCancel   Event = "cancel"
)

// ParseEvent maps user input onto a lifecycle event.
func ParseEvent(s string) (Event, bool) {
	switch e := Event(s); e {
	case EventIssue, EventMarkPaid, EventCancel:
		return e, true
	}
	return "", false
}

// StockEffect is what a transition does to the stock of every line's product.
type StockEffect int

const (
	StockUnchanged StockEffect = iota
	StockDecrement
	StockRestore
)

// Transition describes one allowed edge of the state machine.
type Transition struct {
	From  models.InvoiceStatus
	Event Event
	To    models.InvoiceStatus
	Stock StockEffect
}

var transitions = map[models.InvoiceStatus]map[Event]Transition{
	models.StatusDraft: {
		EventIssue:  {From: models.StatusDraft, Event: EventIssue, To: models.StatusIssued, Stock: StockDecrement},
		EventCancel: {From: models.StatusDraft, Event: EventCancel, To: models.StatusCancelled, Stock: StockUnchanged},
	},
	models.StatusIssued: {
		EventMarkPaid: {From: models.StatusIssued, Event: EventMarkPaid, To: models.StatusPaid, Stock: StockUnchanged},
		EventCancel:   {From: models.StatusIssued, Event: EventCancel, To: models.StatusCancelled, Stock: StockRestore},
	},
	models.StatusPaid: {
		EventCancel: {From: models.StatusPaid, Event: EventCancel, To: models.StatusCancelled, Stock: StockRestore},
	},
	// CANCELLED is terminal.
}

// Next returns the transition for event out of status.
func Next(status models.InvoiceStatus, event Event) (Transition, error) {
	if status == models.StatusCancelled {
		return Transition{}, apperrors.InvalidTransition("invoice is already cancelled")
	}
	t, ok := transitions[status][event]
	if !ok {
		return Transition{}, apperrors.InvalidTransition("cannot %s an invoice in status %s", event, status)
	}
	return t, nil
}

// CanEdit guards line and customer edits, which are only allowed on drafts.
func CanEdit(status models.InvoiceStatus) error {
	if status != models.StatusDraft {
		return apperrors.InvalidTransition("only draft invoices can be edited (status %s)", status)
	}
	return nil
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(status models.InvoiceStatus) bool {
	return len(transitions[status]) == 0
}
