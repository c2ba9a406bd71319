package core

import (
	"context"
	"fmt"
)

// ListCustomers returns every customer with its address.
func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	customers, err := NewPgCustomerStore(s.pool).FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

// GetCustomer returns one customer. The error wraps ErrNotFound when id does
// not exist.
func (s *Service) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return NewPgCustomerStore(s.pool).FindByID(ctx, id)
}

// ListAddresses returns every persisted address.
func (s *Service) ListAddresses(ctx context.Context) ([]Address, error) {
	addrs, err := NewPgAddressStore(s.pool).FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addrs, nil
}

// ListUploads returns the most recent upload attempts, newest first.
func (s *Service) ListUploads(ctx context.Context, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.queries.ListUploads(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	records := make([]UploadRecord, len(rows))
	for i, r := range rows {
		records[i] = UploadRecord{
			ID:               PgUUIDToString(r.ID),
			FileName:         r.FileName,
			Format:           FormatKind(r.Format.String),
			Phase:            UploadPhase(r.Status),
			Customers:        int(r.Customers),
			AddressesCreated: int(r.AddressesCreated),
			Error:            r.Error.String,
			CreatedAt:        r.CreatedAt.Time,
		}
	}
	return records, nil
}

// Stats returns customer and address counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	customers, err := NewPgCustomerStore(s.pool).Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count customers: %w", err)
	}
	addresses, err := NewPgAddressStore(s.pool).Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count addresses: %w", err)
	}
	return Stats{Customers: customers, Addresses: addresses}, nil
}
