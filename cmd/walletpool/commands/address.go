package commands

import (
	"context"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/pool"
	"git.home.luguber.info/inful/walletpool/internal/server/responses"
)

// AllocateCmd implements the 'allocate' command.
type AllocateCmd struct {
	Owner string `short:"o" required:"" help:"Owner to allocate an address to"`
}

func (a *AllocateCmd) Run(g *Global, root *CLI) error {
	return withService(root, func(ctx context.Context, svc *pool.Service) error {
		addr, err := svc.Allocate(ctx, a.Owner)
		if err != nil {
			return err
		}
		return writeJSON(g.Out, responses.AddressResponse{Address: addr.Public()})
	})
}

// ReleaseCmd implements the 'release' command.
type ReleaseCmd struct {
	Address string `arg:"" help:"Address to release"`
	Owner   string `short:"o" help:"Only release when the address belongs to this owner"`
}

func (r *ReleaseCmd) Run(g *Global, root *CLI) error {
	return withService(root, func(ctx context.Context, svc *pool.Service) error {
		if err := svc.Release(ctx, r.Owner, r.Address); err != nil {
			return err
		}
		return writeJSON(g.Out, map[string]string{"released": r.Address})
	})
}

// MintCmd implements the 'mint' command.
type MintCmd struct {
	Owner string `short:"o" help:"Owner of the new address; empty adds it to the free pool"`
}

func (m *MintCmd) Run(g *Global, root *CLI) error {
	return withService(root, func(ctx context.Context, svc *pool.Service) error {
		addr, err := svc.CreateAddressFromDaemon(ctx, m.Owner)
		if err != nil {
			return err
		}
		return writeJSON(g.Out, responses.AddressResponse{Address: addr.Public()})
	})
}

// ListCmd implements the 'list' command.
type ListCmd struct {
	Owner string `short:"o" help:"Only list addresses of this owner" xor:"scope"`
	Free  bool   `help:"Only list unowned addresses" xor:"scope"`
}

func (l *ListCmd) Run(g *Global, root *CLI) error {
	return withService(root, func(ctx context.Context, svc *pool.Service) error {
		var (
			list []*address.Address
			err  error
		)
		switch {
		case l.Owner != "":
			list, err = svc.GetByOwner(ctx, l.Owner)
		case l.Free:
			list, err = svc.GetFreeAddresses(ctx)
		default:
			list, err = svc.GetAll(ctx)
		}
		if err != nil {
			return err
		}
		return writeJSON(g.Out, responses.NewAddressList(list))
	})
}
