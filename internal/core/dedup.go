package core

import (
	"context"
	"fmt"
)

// AddressDeduplicator ensures no two persisted addresses share a location.
//
// Lookups go through AddressLocator when the store provides it and fall back
// to a linear scan of FindAll otherwise. Both apply the same exact
// street/postcode equality, so the choice never changes the result.
type AddressDeduplicator struct {
	store AddressStore
}

// NewAddressDeduplicator creates a deduplicator over store.
func NewAddressDeduplicator(store AddressStore) *AddressDeduplicator {
	return &AddressDeduplicator{store: store}
}

// FindOrReuse returns the persisted address equivalent to candidate and
// found=true, or candidate unchanged and found=false.
func (d *AddressDeduplicator) FindOrReuse(ctx context.Context, candidate Address) (Address, bool, error) {
	if loc, ok := d.store.(AddressLocator); ok {
		addr, found, err := loc.FindByLocation(ctx, candidate.Street, candidate.Postcode)
		if err != nil {
			return Address{}, false, fmt.Errorf("find address by location: %w", err)
		}
		if found {
			return addr, true, nil
		}
		return candidate, false, nil
	}

	existing, err := d.store.FindAll(ctx)
	if err != nil {
		return Address{}, false, fmt.Errorf("list addresses: %w", err)
	}
	for _, addr := range existing {
		if candidate.SameLocation(addr) {
			return addr, true, nil
		}
	}
	return candidate, false, nil
}

// Resolve returns the persisted address for candidate, saving it first if no
// equivalent exists. created reports whether a new address was saved.
func (d *AddressDeduplicator) Resolve(ctx context.Context, candidate Address) (addr Address, created bool, err error) {
	addr, found, err := d.FindOrReuse(ctx, candidate)
	if err != nil {
		return Address{}, false, err
	}
	if found {
		return addr, false, nil
	}

	addr, err = d.store.Save(ctx, candidate)
	if err != nil {
		return Address{}, false, fmt.Errorf("save address: %w", err)
	}
	return addr, true, nil
}
