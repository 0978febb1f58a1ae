package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstbill/internal/apperrors"
	"gstbill/internal/billing"
	"gstbill/internal/models"
)

func TestNext_AllowedTransitions(t *testing.T) {
	tests := []struct {
		from  models.InvoiceStatus
		event billing.Event
		to    models.InvoiceStatus
		stock billing.StockEffect
	}{
		{models.StatusDraft, billing.EventIssue, models.StatusIssued, billing.StockDecrement},
		{models.StatusDraft, billing.EventCancel, models.StatusCancelled, billing.StockUnchanged},
		{models.StatusIssued, billing.EventMarkPaid, models.StatusPaid, billing.StockUnchanged},
		{models.StatusIssued, billing.EventCancel, models.StatusCancelled, billing.StockRestore},
		{models.StatusPaid, billing.EventCancel, models.StatusCancelled, billing.StockRestore},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			tr, err := billing.Next(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.to, tr.To)
			assert.Equal(t, tt.stock, tr.Stock)
		})
	}
}

func TestNext_RejectedTransitions(t *testing.T) {
	tests := []struct {
		from  models.InvoiceStatus
		event billing.Event
	}{
		{models.StatusDraft, billing.EventMarkPaid},
		{models.StatusIssued, billing.EventIssue},
		{models.StatusPaid, billing.EventIssue},
		{models.StatusPaid, billing.EventMarkPaid},
		{models.StatusCancelled, billing.EventCancel},
		{models.StatusCancelled, billing.EventIssue},
		{models.StatusCancelled, billing.EventMarkPaid},
	}
	for _, tt := range tests {
		_, err := billing.Next(tt.from, tt.event)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "%s/%s", tt.from, tt.event)
	}
}

func TestCanEdit(t *testing.T) {
	assert.NoError(t, billing.CanEdit(models.StatusDraft))
	for _, st := range []models.InvoiceStatus{models.StatusIssued, models.StatusPaid, models.StatusCancelled} {
		assert.ErrorIs(t, billing.CanEdit(st), apperrors.ErrInvalidTransition)
	}
	assert.True(t, billing.IsTerminal(models.StatusCancelled))
	assert.False(t, billing.IsTerminal(models.StatusPaid))
}

func TestParseEvent(t *testing.T) {
	e, ok := billing.ParseEvent("markPaid")
	assert.True(t, ok)
	assert.Equal(t, billing.EventMarkPaid, e)
	_, ok = billing.ParseEvent("refund")
	assert.False(t, ok)
}
