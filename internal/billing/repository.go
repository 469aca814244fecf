package billing

import (
	"context"

	"github.com/medcabinet/cabinet/internal/storage"
)

const (
	invoicesCollection = "invoices"
	paymentsCollection = "payments"
)

// Repository reads and writes the ledger collections as whole documents.
type Repository struct {
	store storage.Collection
}

// NewRepository wraps a collection backend.
func NewRepository(store storage.Collection) *Repository {
	return &Repository{store: store}
}

// Load returns both collections and reports whether invoices were ever saved.
func (r *Repository) Load(ctx context.Context) ([]Invoice, []Payment, bool, error) {
	var invoices []Invoice
	found, err := r.store.Load(ctx, invoicesCollection, &invoices)
	if err != nil {
		return nil, nil, false, err
	}
	var payments []Payment
	if _, err := r.store.Load(ctx, paymentsCollection, &payments); err != nil {
		return nil, nil, false, err
	}
	return invoices, payments, found, nil
}

// SaveInvoices replaces the stored invoice collection.
func (r *Repository) SaveInvoices(ctx context.Context, invoices []Invoice) error {
	if invoices == nil {
		invoices = []Invoice{}
	}
	return r.store.Save(ctx, invoicesCollection, invoices)
}

// SavePayments replaces the stored payment collection.
func (r *Repository) SavePayments(ctx context.Context, payments []Payment) error {
	if payments == nil {
		payments = []Payment{}
	}
	return r.store.Save(ctx, paymentsCollection, payments)
}
