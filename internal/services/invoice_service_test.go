package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gstbill/internal/apperrors"
	"gstbill/internal/billing"
	"gstbill/internal/database"
	"gstbill/internal/models"
	"gstbill/internal/repositories"
	"gstbill/internal/services"
)

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	args := m.Called(ctx, routingKey, body)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newInvoiceService(store repositories.Store, publisher services.EventPublisher) *services.InvoiceService {
	svc := services.NewInvoiceService(store, publisher, zap.NewNop(), "27")
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func createProduct(t *testing.T, store repositories.Store, name, price, rate string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:    name,
		HSNCode: "8471",
		Price:   dec(price),
		GSTRate: dec(rate),
		Stock:   stock,
		Active:  true,
	}
	require.NoError(t, store.Products().Create(context.Background(), p))
	return p
}

func stockOf(t *testing.T, store repositories.Store, id string) int {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func customer() services.CustomerDetails {
	return services.CustomerDetails{Name: "Acme Traders", GSTIN: "27AAAAA0000A1Z5"}
}

func draftWithLine(t *testing.T, svc *services.InvoiceService, productID string, qty int) *models.Invoice {
	t.Helper()
	ctx := context.Background()
	inv, err := svc.CreateInvoice(ctx, customer(), "user-1")
	require.NoError(t, err)
	inv, err = svc.AddLine(ctx, inv.ID, productID, qty)
	require.NoError(t, err)
	return inv
}

func TestInvoiceService_CreateInvoice_NumbersPerDay(t *testing.T) {
	svc := newInvoiceService(repositories.NewMemoryStore(), nil)
	ctx := context.Background()

	first, err := svc.CreateInvoice(ctx, customer(), "user-1")
	require.NoError(t, err)
	second, err := svc.CreateInvoice(ctx, customer(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "INV-20240315-0001", first.InvoiceNumber)
	assert.Equal(t, "INV-20240315-0002", second.InvoiceNumber)
	assert.Equal(t, models.StatusDraft, first.Status)
	assert.Equal(t, "user-1", first.CreatedBy)
	assert.True(t, first.TotalAmount.IsZero())
	assert.False(t, first.InterState)

	svc.SetClock(func() time.Time { return fixedNow.AddDate(0, 0, 1) })
	nextDay, err := svc.CreateInvoice(ctx, customer(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "INV-20240316-0001", nextDay.InvoiceNumber)
}

func TestInvoiceService_CreateInvoice_SequenceExhausted(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	for i := 0; i < billing.MaxDailySequence; i++ {
		_, err := store.Sequences().Next(ctx, "20240315")
		require.NoError(t, err)
	}

	_, err := svc.CreateInvoice(ctx, customer(), "user-1")
	assert.ErrorIs(t, err, apperrors.ErrIntegrityViolation)
}

func TestInvoiceService_CreateInvoice_Validation(t *testing.T) {
	svc := newInvoiceService(repositories.NewMemoryStore(), nil)

	_, err := svc.CreateInvoice(context.Background(), services.CustomerDetails{
		Name:          " ",
		GSTIN:         "27AAAAA0000A1Y5",
		PlaceOfSupply: "X",
	}, "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Equal(t, []string{"customer_gstin", "customer_name", "place_of_supply"}, apperrors.SortedFields(err))
}

func TestInvoiceService_CreateInvoice_DerivesSupplyType(t *testing.T) {
	svc := newInvoiceService(repositories.NewMemoryStore(), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		details services.CustomerDetails
		inter   bool
	}{
		{"same state GSTIN", services.CustomerDetails{Name: "Aa", GSTIN: "27AAAAA0000A1Z5"}, false},
		{"other state GSTIN", services.CustomerDetails{Name: "Bb", GSTIN: "29AAAAA0000A1Z5"}, true},
		{"place of supply wins", services.CustomerDetails{Name: "Cc", GSTIN: "29AAAAA0000A1Z5", PlaceOfSupply: "27"}, false},
		{"unregistered customer", services.CustomerDetails{Name: "Dd"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := svc.CreateInvoice(ctx, tt.details, "user-1")
			require.NoError(t, err)
			assert.Equal(t, tt.inter, inv.InterState)
		})
	}
}

func TestInvoiceService_AddLine_ComputesTotals(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	laptop := createProduct(t, store, "Laptop", "100.00", "18", 10)
	cable := createProduct(t, store, "Cable", "10.30", "5", 10)

	inv := draftWithLine(t, svc, laptop.ID, 2)
	inv, err := svc.AddLine(context.Background(), inv.ID, cable.ID, 1)
	require.NoError(t, err)

	require.Len(t, inv.Lines, 2)
	first := inv.Lines[0]
	assert.Equal(t, 1, first.LineNo)
	assert.Equal(t, "Laptop", first.ProductName)
	assert.True(t, first.SubTotal.Equal(dec("200")))
	assert.True(t, first.CGSTAmount.Equal(dec("18")))
	assert.True(t, first.SGSTAmount.Equal(dec("18")))
	assert.True(t, first.IGSTAmount.IsZero())
	assert.True(t, first.TotalAmount.Equal(dec("236")))

	assert.True(t, inv.SubTotal.Equal(dec("210.30")), inv.SubTotal.String())
	assert.True(t, inv.CGSTAmount.Equal(dec("18.26")), inv.CGSTAmount.String())
	assert.True(t, inv.SGSTAmount.Equal(dec("18.26")))
	assert.True(t, inv.TotalAmount.Equal(dec("246.82")), inv.TotalAmount.String())

	stored, err := svc.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(dec("246.82")))

	breakdown, err := svc.GSTBreakdown(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, breakdown["CGST"].Equal(dec("18.26")))
	assert.True(t, breakdown["IGST"].IsZero())
}

func TestInvoiceService_AddLine_RejectsBadInput(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv, err := svc.CreateInvoice(ctx, customer(), "user-1")
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, inv.ID, p.ID, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.AddLine(ctx, inv.ID, "missing", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.AddLine(ctx, "missing", p.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	p.Active = false
	require.NoError(t, store.Products().Update(ctx, p))
	_, err = svc.AddLine(ctx, inv.ID, p.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestInvoiceService_AddLine_DoesNotReserveStock(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	p := createProduct(t, store, "Laptop", "100.00", "18", 5)

	inv := draftWithLine(t, svc, p.ID, 6)
	assert.Equal(t, 6, inv.Lines[0].Quantity)
	assert.Equal(t, 5, stockOf(t, store, p.ID))
}

func TestInvoiceService_UpdateAndRemoveLine(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv := draftWithLine(t, svc, p.ID, 1)
	lineID := inv.Lines[0].ID

	inv, err := svc.UpdateLineQuantity(ctx, inv.ID, lineID, 3)
	require.NoError(t, err)
	assert.Equal(t, lineID, inv.Lines[0].ID)
	assert.True(t, inv.Lines[0].SubTotal.Equal(dec("300")))
	assert.True(t, inv.TotalAmount.Equal(dec("354")))

	_, err = svc.UpdateLineQuantity(ctx, inv.ID, "missing", 3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.UpdateLineQuantity(ctx, inv.ID, lineID, -1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	inv, err = svc.RemoveLine(ctx, inv.ID, lineID)
	require.NoError(t, err)
	assert.Empty(t, inv.Lines)
	assert.True(t, inv.TotalAmount.IsZero())

	_, err = svc.RemoveLine(ctx, inv.ID, lineID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInvoiceService_UpdateCustomer_RecomputesTaxForm(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv := draftWithLine(t, svc, p.ID, 1)
	require.False(t, inv.InterState)

	inv, err := svc.UpdateCustomer(context.Background(), inv.ID, services.CustomerDetails{
		Name:  "Globex",
		GSTIN: "29aaaaa0000a1z5",
	})
	require.NoError(t, err)
	assert.Equal(t, "Globex", inv.CustomerName)
	assert.Equal(t, "29AAAAA0000A1Z5", inv.CustomerGSTIN)
	assert.True(t, inv.InterState)
	assert.True(t, inv.Lines[0].IGSTAmount.Equal(dec("18")))
	assert.True(t, inv.Lines[0].CGSTAmount.IsZero())
	assert.True(t, inv.IGSTAmount.Equal(dec("18")))
	assert.True(t, inv.TotalAmount.Equal(dec("118")))
}

func TestInvoiceService_IssueWithInsufficientStockChangesNothing(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	p := createProduct(t, store, "Laptop", "100.00", "18", 5)
	inv := draftWithLine(t, svc, p.ID, 6)

	_, err := svc.Issue(context.Background(), inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	assert.Equal(t, 5, stockOf(t, store, p.ID))
	stored, err := svc.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, stored.Status)
	assert.Nil(t, stored.IssuedAt)
}

func TestInvoiceService_IssueRollsBackEarlierLines(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	a := createProduct(t, store, "Alpha", "10.00", "5", 5)
	b := createProduct(t, store, "Beta", "10.00", "5", 1)

	inv := draftWithLine(t, svc, a.ID, 2)
	_, err := svc.AddLine(ctx, inv.ID, b.ID, 3)
	require.NoError(t, err)

	_, err = svc.Issue(ctx, inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, 5, stockOf(t, store, a.ID))
	assert.Equal(t, 1, stockOf(t, store, b.ID))
}

func TestInvoiceService_IssueCountsRepeatedProductTogether(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 5)

	inv := draftWithLine(t, svc, p.ID, 3)
	_, err := svc.AddLine(ctx, inv.ID, p.ID, 3)
	require.NoError(t, err)

	_, err = svc.Issue(ctx, inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, 5, stockOf(t, store, p.ID))
}

func TestInvoiceService_IssueEmptyInvoice(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	p := createProduct(t, store, "Laptop", "100.00", "18", 4)
	inv, err := svc.CreateInvoice(context.Background(), customer(), "user-1")
	require.NoError(t, err)

	issued, err := svc.Issue(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIssued, issued.Status)
	assert.Empty(t, issued.Lines)
	assert.True(t, issued.TotalAmount.IsZero())
	assert.Equal(t, 4, stockOf(t, store, p.ID))
}

func TestInvoiceService_IssueThenCancelRestoresStock(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv := draftWithLine(t, svc, p.ID, 3)

	issued, err := svc.Issue(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIssued, issued.Status)
	require.NotNil(t, issued.IssuedAt)
	assert.True(t, issued.IssuedAt.Equal(fixedNow))
	assert.Equal(t, 7, stockOf(t, store, p.ID))

	cancelled, err := svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 10, stockOf(t, store, p.ID))
}

func TestInvoiceService_PaidThenCancelRestoresStock(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv := draftWithLine(t, svc, p.ID, 4)

	_, err := svc.Issue(ctx, inv.ID)
	require.NoError(t, err)
	paid, err := svc.MarkPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, 6, stockOf(t, store, p.ID))

	_, err = svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stockOf(t, store, p.ID))
}

func TestInvoiceService_CancelDraftLeavesStock(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv := draftWithLine(t, svc, p.ID, 4)

	_, err := svc.Cancel(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stockOf(t, store, p.ID))
}

func TestInvoiceService_CancelledIsTerminal(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv := draftWithLine(t, svc, p.ID, 1)

	_, err := svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)

	for _, event := range []billing.Event{billing.EventCancel, billing.EventIssue, billing.EventMarkPaid} {
		_, err = svc.Transition(ctx, inv.ID, event)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, string(event))
	}
	assert.Equal(t, 10, stockOf(t, store, p.ID))
}

func TestInvoiceService_MarkPaidRequiresIssued(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv := draftWithLine(t, svc, p.ID, 1)

	_, err := svc.MarkPaid(context.Background(), inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestInvoiceService_EditingIssuedInvoiceIsRejected(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	other := createProduct(t, store, "Mouse", "20.00", "12", 10)
	inv := draftWithLine(t, svc, p.ID, 2)
	issued, err := svc.Issue(ctx, inv.ID)
	require.NoError(t, err)
	lineID := issued.Lines[0].ID

	edits := map[string]func() error{
		"add line": func() error { _, err := svc.AddLine(ctx, inv.ID, other.ID, 1); return err },
		"update line": func() error {
			_, err := svc.UpdateLineQuantity(ctx, inv.ID, lineID, 5)
			return err
		},
		"remove line": func() error { _, err := svc.RemoveLine(ctx, inv.ID, lineID); return err },
		"update customer": func() error {
			_, err := svc.UpdateCustomer(ctx, inv.ID, services.CustomerDetails{Name: "Changed"})
			return err
		},
		"delete": func() error { return svc.DeleteInvoice(ctx, inv.ID) },
	}
	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, edit(), apperrors.ErrInvalidTransition)
		})
	}

	after, err := svc.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.CustomerName, after.CustomerName)
	require.Len(t, after.Lines, 1)
	assert.Equal(t, 2, after.Lines[0].Quantity)
	assert.True(t, after.TotalAmount.Equal(issued.TotalAmount))
	assert.Equal(t, 8, stockOf(t, store, p.ID))
}

func TestInvoiceService_DeleteDraft(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv := draftWithLine(t, svc, p.ID, 2)

	require.NoError(t, svc.DeleteInvoice(ctx, inv.ID))
	_, err := svc.GetByID(ctx, inv.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteInvoice(ctx, inv.ID), apperrors.ErrNotFound)
}

func TestInvoiceService_PublishesLifecycleEvents(t *testing.T) {
	store := repositories.NewMemoryStore()
	publisher := new(MockPublisher)
	svc := newInvoiceService(store, publisher)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)
	inv := draftWithLine(t, svc, p.ID, 2)

	publisher.On("Publish", mock.Anything, services.EventInvoiceIssued, mock.MatchedBy(func(body []byte) bool {
		var ev services.InvoiceEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return false
		}
		return ev.InvoiceID == inv.ID && ev.Status == models.StatusIssued &&
			len(ev.Lines) == 1 && ev.Lines[0].ProductID == p.ID && ev.Lines[0].Quantity == 2 &&
			ev.TotalAmount.Equal(dec("236"))
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, services.EventInvoiceCancelled, mock.Anything).
		Return(errors.New("broker down")).Once()

	_, err := svc.Issue(ctx, inv.ID)
	require.NoError(t, err)

	// a publishing failure never fails the committed transition
	cancelled, err := svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	publisher.AssertExpectations(t)
}

func TestInvoiceService_FailedTransitionPublishesNothing(t *testing.T) {
	store := repositories.NewMemoryStore()
	publisher := new(MockPublisher)
	svc := newInvoiceService(store, publisher)
	p := createProduct(t, store, "Laptop", "100.00", "18", 1)
	inv := draftWithLine(t, svc, p.ID, 2)

	_, err := svc.Issue(context.Background(), inv.ID)
	assert.Error(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceService_ConcurrentCreationYieldsUniqueNumbers(t *testing.T) {
	factories := map[string]func(t *testing.T) repositories.Store{
		"memory": func(t *testing.T) repositories.Store { return repositories.NewMemoryStore() },
		"gorm": func(t *testing.T) repositories.Store {
			db, err := database.OpenInMemory(uuid.NewString())
			require.NoError(t, err)
			return repositories.NewGORMStore(db)
		},
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			svc := newInvoiceService(factory(t), nil)
			const n = 40

			var wg sync.WaitGroup
			numbers := make(chan string, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					inv, err := svc.CreateInvoice(context.Background(), services.CustomerDetails{Name: fmt.Sprintf("Customer %d", i)}, "user-1")
					if assert.NoError(t, err) {
						numbers <- inv.InvoiceNumber
					}
				}(i)
			}
			wg.Wait()
			close(numbers)

			seen := make(map[string]bool, n)
			for number := range numbers {
				assert.True(t, billing.ValidInvoiceNumber(number), number)
				assert.False(t, seen[number], "duplicate %s", number)
				seen[number] = true
			}
			assert.Len(t, seen, n)
			assert.True(t, seen["INV-20240315-0001"])
			assert.True(t, seen[fmt.Sprintf("INV-20240315-%04d", n)])
		})
	}
}

func TestInvoiceService_ConcurrentIssuesNeverOversell(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	p := createProduct(t, store, "Laptop", "100.00", "18", 5)

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = draftWithLine(t, svc, p.ID, 1).ID
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	issued := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.Issue(context.Background(), id); err == nil {
				mu.Lock()
				issued++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 5, issued)
	assert.Equal(t, 0, stockOf(t, store, p.ID))
}

func TestInvoiceService_Listings(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := newInvoiceService(store, nil)
	ctx := context.Background()
	p := createProduct(t, store, "Laptop", "100.00", "18", 10)

	a := draftWithLine(t, svc, p.ID, 1)
	_, err := svc.Issue(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.CreateInvoice(ctx, services.CustomerDetails{Name: "Globex Corp"}, "user-2")
	require.NoError(t, err)
	_, err = svc.CreateInvoice(ctx, services.CustomerDetails{Name: "Initech"}, "user-2")
	require.NoError(t, err)

	drafts, err := svc.ListByStatus(ctx, models.StatusDraft, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, drafts.Total)

	_, err = svc.ListByStatus(ctx, models.InvoiceStatus("LOST"), 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	globex, err := svc.ListByCustomer(ctx, "globex", 1, 10)
	require.NoError(t, err)
	require.Len(t, globex.Items, 1)
	assert.Equal(t, "Globex Corp", globex.Items[0].CustomerName)

	byNumber, err := svc.Search(ctx, a.InvoiceNumber, 0, 0)
	require.NoError(t, err)
	require.Len(t, byNumber.Items, 1)
	assert.Equal(t, 1, byNumber.Page)
	assert.Equal(t, services.DefaultPageSize, byNumber.Limit)

	paged, err := svc.List(ctx, repositories.InvoiceFilter{}, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, paged.Total)
	assert.Len(t, paged.Items, 1)

	day, err := svc.ListByDateRange(ctx, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, day, 3)
	_, err = svc.ListByDateRange(ctx, fixedNow, fixedNow.Add(-time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	found, err := svc.GetByNumber(ctx, a.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
}

func TestInvoiceService_Validators(t *testing.T) {
	svc := newInvoiceService(repositories.NewMemoryStore(), nil)
	assert.True(t, svc.ValidateInvoiceNumber("INV-20240315-0001"))
	assert.False(t, svc.ValidateInvoiceNumber("INV-2024-0001"))
	assert.True(t, svc.ValidateGSTIN("27AAAAA0000A1Z5"))
	assert.False(t, svc.ValidateGSTIN("27AAAAA0000A1Y5"))
}
