package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// SeedSource is the Source recorded on seeded customers.
const SeedSource = "seed"

// Reset deletes every customer and then every address.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.limiter.Release()

	resetCtx, cancel := context.WithTimeout(ctx, s.resetTimeout)
	defer cancel()

	err := pgx.BeginFunc(resetCtx, s.pool, func(tx pgx.Tx) error {
		// Customers first: they reference addresses.
		if err := NewPgCustomerStore(tx).DeleteAll(resetCtx); err != nil {
			return fmt.Errorf("reset customers: %w", err)
		}
		if err := NewPgAddressStore(tx).DeleteAll(resetCtx); err != nil {
			return fmt.Errorf("reset addresses: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("customer store reset")
	return nil
}

// DemoCustomers returns the customers inserted by SeedDemoData.
func DemoCustomers() []Customer {
	return []Customer{
		{
			FirstName:   "Lukasz",
			LastName:    "Herbet",
			Address:     &Address{Street: "Straussa 1/15", Postcode: "50-129"},
			Phone:       "089 4777333",
			CreditLimit: mustCreditLimit("1000.00"),
			Birthday:    time.Date(1985, time.September, 26, 0, 0, 0, 0, time.UTC),
			Source:      SeedSource,
		},
		{
			FirstName:   "Jan",
			LastName:    "Kowalski",
			Address:     &Address{Street: "Stawowa 13", Postcode: "50-118"},
			Phone:       "089 9788795",
			CreditLimit: mustCreditLimit("112321.33"),
			Birthday:    time.Date(1980, time.January, 5, 0, 0, 0, 0, time.UTC),
			Source:      SeedSource,
		},
	}
}

// SeedDemoData inserts DemoCustomers when the store holds no customers.
// It reports whether anything was inserted.
func (s *Service) SeedDemoData(ctx context.Context) (bool, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return false, err
	}
	defer s.limiter.Release()

	seeded := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		customers := NewPgCustomerStore(tx)
		n, err := customers.Count(ctx)
		if err != nil {
			return fmt.Errorf("count customers: %w", err)
		}
		if n > 0 {
			return nil
		}

		seeded, err = seedCustomers(ctx, NewPgAddressStore(tx), customers, DemoCustomers())
		return err
	})
	if err != nil {
		return false, fmt.Errorf("seed demo data: %w", err)
	}
	return seeded, nil
}

// seedCustomers saves list through the same address dedup used by uploads.
func seedCustomers(ctx context.Context, addresses AddressStore, customers CustomerStore, list []Customer) (bool, error) {
	dedup := NewAddressDeduplicator(addresses)
	for _, c := range list {
		addr, _, err := dedup.Resolve(ctx, *c.Address)
		if err != nil {
			return false, err
		}
		c.Address = &addr
		if _, err := customers.Save(ctx, c); err != nil {
			return false, fmt.Errorf("save customer %s: %w", c.LastName, err)
		}
	}
	return len(list) > 0, nil
}

func mustCreditLimit(s string) pgtype.Numeric {
	n, err := ParseCreditLimit(s)
	if err != nil {
		panic(err)
	}
	return n
}
