package serum

import (
	"context"
	"encoding/binary"
	"zetago/constants"

	agBinary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"
)

// MarketContext supplies the per-market scales and time-in-force epoch
// bookkeeping used to read an order book.
type MarketContext interface {
	GetBaseLotSize() uint64
	GetQuoteLotSize() uint64
	GetBaseDecimals() uint8
	GetQuoteDecimals() uint8
	GetEpochLength() uint64
	GetEpochStartTs() int64
	GetStartEpochSeqNum() uint64
}

// MarketParams is a MarketContext built from known constants.
type MarketParams struct {
	BaseLotSize      uint64
	QuoteLotSize     uint64
	BaseDecimals     uint8
	QuoteDecimals    uint8
	EpochLength      uint64
	EpochStartTs     int64
	StartEpochSeqNum uint64
}

func (p MarketParams) GetBaseLotSize() uint64      { return p.BaseLotSize }
func (p MarketParams) GetQuoteLotSize() uint64     { return p.QuoteLotSize }
func (p MarketParams) GetBaseDecimals() uint8      { return p.BaseDecimals }
func (p MarketParams) GetQuoteDecimals() uint8     { return p.QuoteDecimals }
func (p MarketParams) GetEpochLength() uint64      { return p.EpochLength }
func (p MarketParams) GetEpochStartTs() int64      { return p.EpochStartTs }
func (p MarketParams) GetStartEpochSeqNum() uint64 { return p.StartEpochSeqNum }

// Epoch is the time-in-force state of a market. It is not part of the V3
// market layout and is supplied by the caller.
type Epoch struct {
	Length      uint64
	StartTs     int64
	StartSeqNum uint64
}

// AccountFetcher is the subset of *rpc.Client the loaders need.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

type MarketStateV3 struct {
	AccountFlags           AccountFlags
	OwnAddress             solana.PublicKey
	VaultSignerNonce       uint64
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	BaseVault              solana.PublicKey
	BaseDepositsTotal      uint64
	BaseFeesAccrued        uint64
	QuoteVault             solana.PublicKey
	QuoteDepositsTotal     uint64
	QuoteFeesAccrued       uint64
	QuoteDustThreshold     uint64
	RequestQueue           solana.PublicKey
	EventQueue             solana.PublicKey
	Bids                   solana.PublicKey
	Asks                   solana.PublicKey
	BaseLotSize            uint64
	QuoteLotSize           uint64
	FeeRateBps             uint64
	ReferrerRebatesAccrued uint64
}

func (obj *MarketStateV3) UnmarshalWithDecoder(decoder *agBinary.Decoder) (err error) {
	readPubkey := func(dst *solana.PublicKey) error {
		b, err := decoder.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		*dst = solana.PublicKeyFromBytes(b)
		return nil
	}
	readU64 := func(dst *uint64) (err error) {
		*dst, err = decoder.ReadUint64(binary.LittleEndian)
		return err
	}
	if err = decoder.SkipBytes(constants.ACCOUNT_HEAD_PADDING_SIZE); err != nil {
		return err
	}
	if err = obj.AccountFlags.UnmarshalWithDecoder(decoder); err != nil {
		return err
	}
	steps := []func() error{
		func() error { return readPubkey(&obj.OwnAddress) },
		func() error { return readU64(&obj.VaultSignerNonce) },
		func() error { return readPubkey(&obj.BaseMint) },
		func() error { return readPubkey(&obj.QuoteMint) },
		func() error { return readPubkey(&obj.BaseVault) },
		func() error { return readU64(&obj.BaseDepositsTotal) },
		func() error { return readU64(&obj.BaseFeesAccrued) },
		func() error { return readPubkey(&obj.QuoteVault) },
		func() error { return readU64(&obj.QuoteDepositsTotal) },
		func() error { return readU64(&obj.QuoteFeesAccrued) },
		func() error { return readU64(&obj.QuoteDustThreshold) },
		func() error { return readPubkey(&obj.RequestQueue) },
		func() error { return readPubkey(&obj.EventQueue) },
		func() error { return readPubkey(&obj.Bids) },
		func() error { return readPubkey(&obj.Asks) },
		func() error { return readU64(&obj.BaseLotSize) },
		func() error { return readU64(&obj.QuoteLotSize) },
		func() error { return readU64(&obj.FeeRateBps) },
		func() error { return readU64(&obj.ReferrerRebatesAccrued) },
	}
	for _, step := range steps {
		if err = step(); err != nil {
			return err
		}
	}
	return nil
}

func DecodeMarketState(buffer []byte) (*MarketStateV3, error) {
	var state MarketStateV3
	if err := agBinary.NewBinDecoder(buffer).Decode(&state); err != nil {
		return nil, errors.WrapPrefix(err, "market state", 0)
	}
	if !state.AccountFlags.Initialized() || !state.AccountFlags.Market() {
		return nil, errors.Errorf("account flags %#x: %w", uint64(state.AccountFlags), ErrInvalidMarket)
	}
	return &state, nil
}

type Market struct {
	Address   solana.PublicKey
	ProgramId solana.PublicKey
	QuoteMint *token.Mint
	BaseMint  *token.Mint
	Data      *MarketStateV3
	Epoch     Epoch
}

func (p *Market) GetBaseLotSize() uint64      { return p.Data.BaseLotSize }
func (p *Market) GetQuoteLotSize() uint64     { return p.Data.QuoteLotSize }
func (p *Market) GetEpochLength() uint64      { return p.Epoch.Length }
func (p *Market) GetEpochStartTs() int64      { return p.Epoch.StartTs }
func (p *Market) GetStartEpochSeqNum() uint64 { return p.Epoch.StartSeqNum }

func (p *Market) GetBaseDecimals() uint8 {
	if p.BaseMint == nil {
		return 0
	}
	return p.BaseMint.Decimals
}

func (p *Market) GetQuoteDecimals() uint8 {
	if p.QuoteMint == nil {
		return 0
	}
	return p.QuoteMint.Decimals
}

func (p *Market) BaseSplTokenMultiplier() uint64 {
	return solana.DecimalsInBigInt(uint32(p.GetBaseDecimals())).Uint64()
}

func (p *Market) QuoteSplTokenMultiplier() uint64 {
	return solana.DecimalsInBigInt(uint32(p.GetQuoteDecimals())).Uint64()
}

func (p *Market) Reload(buffer []byte) error {
	state, err := DecodeMarketState(buffer)
	if err != nil {
		return err
	}
	p.Data = state
	return nil
}

func fetchAccountData(ctx context.Context, connection AccountFetcher, address solana.PublicKey) ([]byte, error) {
	accountInfo, err := connection.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, errors.WrapPrefix(err, "get account "+address.String(), 0)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, errors.Errorf("account %s not found", address)
	}
	data := accountInfo.Value.Data.GetBinary()
	if len(data) == 0 {
		return nil, errors.Errorf("account %s has no data", address)
	}
	return data, nil
}

func loadMint(ctx context.Context, connection AccountFetcher, address solana.PublicKey) (*token.Mint, error) {
	data, err := fetchAccountData(ctx, connection, address)
	if err != nil {
		return nil, err
	}
	var mint token.Mint
	if err = agBinary.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, errors.WrapPrefix(err, "mint "+address.String(), 0)
	}
	return &mint, nil
}

func (p *Market) LoadBaseMint(ctx context.Context, connection AccountFetcher) error {
	mint, err := loadMint(ctx, connection, p.Data.BaseMint)
	if err != nil {
		return err
	}
	p.BaseMint = mint
	return nil
}

func (p *Market) LoadQuoteMint(ctx context.Context, connection AccountFetcher) error {
	mint, err := loadMint(ctx, connection, p.Data.QuoteMint)
	if err != nil {
		return err
	}
	p.QuoteMint = mint
	return nil
}

func (p *Market) LoadOrderbookFromBuffer(buffer []byte, side Side) (*Orderbook, error) {
	return LoadOrderbookForSide(buffer, side, p)
}

func (p *Market) LoadAsks(ctx context.Context, connection AccountFetcher) (*Orderbook, error) {
	data, err := fetchAccountData(ctx, connection, p.Data.Asks)
	if err != nil {
		return nil, err
	}
	return p.LoadOrderbookFromBuffer(data, SideAsk)
}

func (p *Market) LoadBids(ctx context.Context, connection AccountFetcher) (*Orderbook, error) {
	data, err := fetchAccountData(ctx, connection, p.Data.Bids)
	if err != nil {
		return nil, err
	}
	return p.LoadOrderbookFromBuffer(data, SideBid)
}

func LoadMarketFromAddress(
	ctx context.Context,
	connection AccountFetcher,
	address solana.PublicKey,
	programId solana.PublicKey,
	epoch Epoch,
) (*Market, error) {
	data, err := fetchAccountData(ctx, connection, address)
	if err != nil {
		return nil, err
	}
	market, err := LoadMarketFromBuffer(address, programId, data)
	if err != nil {
		return nil, err
	}
	market.Epoch = epoch
	if err = market.LoadBaseMint(ctx, connection); err != nil {
		return nil, err
	}
	if err = market.LoadQuoteMint(ctx, connection); err != nil {
		return nil, err
	}
	return market, nil
}

func LoadMarketFromBuffer(address solana.PublicKey, programId solana.PublicKey, buffer []byte) (*Market, error) {
	market := &Market{
		Address:   address,
		ProgramId: programId,
	}
	if err := market.Reload(buffer); err != nil {
		return nil, err
	}
	return market, nil
}
