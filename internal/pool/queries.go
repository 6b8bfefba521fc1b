package pool

import (
	"context"

	"git.home.luguber.info/inful/walletpool/internal/address"
)

// GetAll returns every enabled record in store order.
func (s *Service) GetAll(ctx context.Context) ([]*address.Address, error) {
	records, err := s.store.GetAll(ctx, address.Filter{IsEnabled: address.Enabled(true)}, nil, address.Sort{})
	if err != nil {
		return nil, storeErr(err, "get_all")
	}
	return records, nil
}

// GetFreeAddresses returns the free pool, oldest first.
func (s *Service) GetFreeAddresses(ctx context.Context) ([]*address.Address, error) {
	records, err := s.store.GetAll(ctx, freePool, nil, address.ByCreatedAt)
	if err != nil {
		return nil, storeErr(err, "get_free")
	}
	return records, nil
}

// GetByOwner returns the enabled records held by ownerID, oldest first.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) ([]*address.Address, error) {
	if ownerID == "" {
		return []*address.Address{}, nil
	}
	filter := address.Filter{OwnerID: ownerID, IsEnabled: address.Enabled(true)}
	records, err := s.store.GetAll(ctx, filter, nil, address.ByCreatedAt)
	if err != nil {
		return nil, storeErr(err, "get_by_owner")
	}
	return records, nil
}

// Clear removes every record from the store. The daemon is not touched.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return storeErr(err, "clear")
	}
	s.logger.WarnContext(ctx, "Address store cleared")
	s.recorder.SetFreeAddresses(0)
	return nil
}
