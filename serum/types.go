package serum

import (
	"context"
	"zetago/lib/serum"
	"zetago/math"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

type OrderbookSubscriberConfig struct {
	ProgramId     solana.PublicKey
	MarketAddress solana.PublicKey
	Epoch         serum.Epoch
	Precision     math.Precision
	Commitment    rpc.CommitmentType
	Logger        *zap.SugaredLogger
}

// AccountStream is the subset of *ws.Client the subscriber needs.
type AccountStream interface {
	AccountSubscribe(account solana.PublicKey, commitment rpc.CommitmentType) (*ws.AccountSubscription, error)
}

type accountSubscription interface {
	Recv(ctx context.Context) (*ws.AccountResult, error)
	Unsubscribe()
}
