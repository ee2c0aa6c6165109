package go_zeta

import (
	"context"
	"crypto/sha256"
	"fmt"
	"zetago/constants"
	solanalib "zetago/lib/solana"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"
	"github.com/iancoleman/strcase"
)

const DISCRIMINATOR_SIZE = 8

// GetAccountFilter matches the anchor discriminator of accountName.
func GetAccountFilter(accountName string) rpc.RPCFilter {
	hash := sha256.Sum256([]byte(fmt.Sprintf("account:%s", strcase.ToCamel(accountName))))
	hashCut := hash[0:DISCRIMINATOR_SIZE]
	return rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: 0,
			Bytes:  hashCut[:],
		},
	}
}

func GetOpenOrdersMarketFilter(market solana.PublicKey) rpc.RPCFilter {
	return rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: constants.OPEN_ORDERS_MARKET_OFFSET,
			Bytes:  market.Bytes(),
		},
	}
}

func GetOpenOrdersOwnerFilter(owner solana.PublicKey) rpc.RPCFilter {
	return rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: constants.OPEN_ORDERS_OWNER_OFFSET,
			Bytes:  owner.Bytes(),
		},
	}
}

func GetOpenOrdersSizeFilter() rpc.RPCFilter {
	return rpc.RPCFilter{
		DataSize: constants.OPEN_ORDERS_ACCOUNT_SIZE,
	}
}

func OpenOrdersFilters(market solana.PublicKey, owner solana.PublicKey) []rpc.RPCFilter {
	return []rpc.RPCFilter{
		GetOpenOrdersMarketFilter(market),
		GetOpenOrdersOwnerFilter(owner),
		GetOpenOrdersSizeFilter(),
	}
}

// FindOpenOrdersAccounts lists the open orders accounts owner holds on market
// and the slot they were observed at.
func FindOpenOrdersAccounts(
	ctx context.Context,
	cl solanalib.RPCCaller,
	dexProgramId solana.PublicKey,
	market solana.PublicKey,
	owner solana.PublicKey,
) ([]solana.PublicKey, uint64, error) {
	result, err := solanalib.GetProgramAccountsContextWithOpts(ctx, cl, dexProgramId, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Filters:    OpenOrdersFilters(market, owner),
	})
	if err != nil {
		return nil, 0, errors.WrapPrefix(err, "open orders of "+owner.String(), 0)
	}
	accounts := make([]solana.PublicKey, 0, len(result.Value))
	for _, account := range result.Value {
		accounts = append(accounts, account.Pubkey)
	}
	return accounts, result.Context.Slot, nil
}
