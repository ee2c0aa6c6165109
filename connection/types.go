package connection

import (
	"context"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

type IConnectionManager interface {
	AddConfig(config Config, id ...string) string
	GetRpc(id ...string) *rpc.Client
	GetWs(ctx context.Context, id ...string) (*ws.Client, error)
	Close()
}

var _ IConnectionManager = (*Manager)(nil)
