package serum

import (
	"context"
	"sync"
	"sync/atomic"
	"zetago/common"
	"zetago/lib/event"
	"zetago/lib/serum"
	"zetago/math"
	"zetago/utils"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-errors/errors"
	"go.uber.org/zap"
)

var ErrNotLoaded = errors.New("order book not loaded")

const updateEvent = "update"

// BookUpdate is emitted after a new snapshot of one side has been stored.
type BookUpdate struct {
	Side serum.Side
	Slot uint64
}

type bookSnapshot struct {
	book *serum.Orderbook
	slot uint64
}

// OrderbookSubscriber keeps the latest decoded bids and asks of one market.
// Every account update decodes into a new snapshot that replaces the previous
// one atomically, so readers never observe a partially applied update.
type OrderbookSubscriber struct {
	config OrderbookSubscriberConfig
	logger *zap.SugaredLogger
	market *serum.Market

	bids   atomic.Pointer[bookSnapshot]
	asks   atomic.Pointer[bookSnapshot]
	events *event.EventEmitter[BookUpdate]

	mu            sync.Mutex
	subscribed    bool
	cancel        context.CancelFunc
	subscriptions []accountSubscription
	wg            sync.WaitGroup
}

func CreateOrderbookSubscriber(config OrderbookSubscriberConfig) *OrderbookSubscriber {
	if config.Logger == nil {
		config.Logger = utils.NewNopLogger()
	}
	if config.Precision == (math.Precision{}) {
		config.Precision = math.DefaultPrecision
	}
	if config.Commitment == "" {
		config.Commitment = rpc.CommitmentConfirmed
	}
	return &OrderbookSubscriber{
		config: config,
		logger: config.Logger.With("market", config.MarketAddress.String()),
		events: event.CreateEventEmitter[BookUpdate](),
	}
}

// CreateOrderbookSubscriberForMarket skips the market account fetch.
func CreateOrderbookSubscriberForMarket(market *serum.Market, config OrderbookSubscriberConfig) *OrderbookSubscriber {
	config.MarketAddress = market.Address
	config.ProgramId = market.ProgramId
	p := CreateOrderbookSubscriber(config)
	p.market = market
	return p
}

func (p *OrderbookSubscriber) Market() *serum.Market {
	return p.market
}

// Load fetches the market, its mints and both sides of the book over rpc.
func (p *OrderbookSubscriber) Load(ctx context.Context, connection serum.AccountFetcher) error {
	if p.market == nil {
		market, err := serum.LoadMarketFromAddress(ctx, connection, p.config.MarketAddress, p.config.ProgramId, p.config.Epoch)
		if err != nil {
			return err
		}
		p.market = market
	}
	bids, err := p.market.LoadBids(ctx, connection)
	if err != nil {
		return err
	}
	asks, err := p.market.LoadAsks(ctx, connection)
	if err != nil {
		return err
	}
	p.bids.Store(&bookSnapshot{book: bids.WithPrecision(p.config.Precision)})
	p.asks.Store(&bookSnapshot{book: asks.WithPrecision(p.config.Precision)})
	return nil
}

func (p *OrderbookSubscriber) Subscribe(ctx context.Context, connection serum.AccountFetcher, stream AccountStream) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribed {
		return nil
	}
	if err := p.Load(ctx, connection); err != nil {
		return err
	}
	followCtx, cancel := context.WithCancel(context.Background())
	for _, address := range []solana.PublicKey{p.market.Data.Bids, p.market.Data.Asks} {
		subscription, err := stream.AccountSubscribe(address, p.config.Commitment)
		if err != nil {
			cancel()
			p.closeSubscriptions()
			return errors.WrapPrefix(err, "subscribe "+address.String(), 0)
		}
		p.subscriptions = append(p.subscriptions, subscription)
		p.wg.Add(1)
		go p.follow(followCtx, address, subscription)
	}
	p.cancel = cancel
	p.subscribed = true
	p.logger.Infow("subscribed", "bids", p.market.Data.Bids.String(), "asks", p.market.Data.Asks.String())
	return nil
}

func (p *OrderbookSubscriber) follow(ctx context.Context, address solana.PublicKey, subscription accountSubscription) {
	defer p.wg.Done()
	for {
		result, err := subscription.Recv(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Errorw("account stream closed", "account", address.String(), "err", err)
			}
			return
		}
		if result == nil || result.Value.Data == nil {
			continue
		}
		p.ApplyAccountUpdate(address, result.Context.Slot, result.Value.Data.GetBinary())
	}
}

// ApplyAccountUpdate decodes data as the book stored at address. Updates for
// unknown accounts, older slots or undecodable data leave the current
// snapshot in place.
func (p *OrderbookSubscriber) ApplyAccountUpdate(address solana.PublicKey, slot uint64, data []byte) bool {
	if p.market == nil {
		return false
	}
	var (
		side   serum.Side
		target *atomic.Pointer[bookSnapshot]
	)
	switch {
	case address.Equals(p.market.Data.Bids):
		side, target = serum.SideBid, &p.bids
	case address.Equals(p.market.Data.Asks):
		side, target = serum.SideAsk, &p.asks
	default:
		return false
	}
	if current := target.Load(); current != nil && slot < current.slot {
		p.logger.Debugw("stale update", "side", side.String(), "slot", slot, "current", current.slot)
		return false
	}
	book, err := p.market.LoadOrderbookFromBuffer(data, side)
	if err != nil {
		p.logger.Errorw("orderbook decode failed", "account", address.String(), "slot", slot, "err", err)
		return false
	}
	target.Store(&bookSnapshot{book: book.WithPrecision(p.config.Precision), slot: slot})
	p.events.Emit(updateEvent, BookUpdate{Side: side, Slot: slot})
	return true
}

// OnUpdate registers callback for every applied account update. Callbacks run
// on their own goroutine.
func (p *OrderbookSubscriber) OnUpdate(callback func(BookUpdate)) string {
	return p.events.On(updateEvent, callback)
}

func (p *OrderbookSubscriber) OffUpdate(id string) {
	p.events.Off(updateEvent, id)
}

func (p *OrderbookSubscriber) book(side serum.Side) *bookSnapshot {
	return utils.TT(side == serum.SideBid, p.bids.Load(), p.asks.Load())
}

func (p *OrderbookSubscriber) GetSlot(side serum.Side) uint64 {
	if snapshot := p.book(side); snapshot != nil {
		return snapshot.slot
	}
	return 0
}

func (p *OrderbookSubscriber) getBest(side serum.Side, clockTs int64) (serum.OrderInfo, bool) {
	snapshot := p.book(side)
	if snapshot == nil {
		return serum.OrderInfo{}, false
	}
	levels, err := snapshot.book.GetL2(1, clockTs)
	if err != nil {
		p.logger.Errorw("best level", "side", side.String(), "err", err)
		return serum.OrderInfo{}, false
	}
	if len(levels) == 0 {
		return serum.OrderInfo{}, false
	}
	return levels[0], true
}

func (p *OrderbookSubscriber) GetBestBid(clockTs int64) (serum.OrderInfo, bool) {
	return p.getBest(serum.SideBid, clockTs)
}

func (p *OrderbookSubscriber) GetBestAsk(clockTs int64) (serum.OrderInfo, bool) {
	return p.getBest(serum.SideAsk, clockTs)
}

// GetL2 reads both sides, each best price first.
func (p *OrderbookSubscriber) GetL2(depth int, clockTs int64) (bids []serum.OrderInfo, asks []serum.OrderInfo, err error) {
	bidSnapshot, askSnapshot := p.bids.Load(), p.asks.Load()
	if bidSnapshot == nil || askSnapshot == nil {
		return nil, nil, ErrNotLoaded
	}
	if bids, err = bidSnapshot.book.GetL2(depth, clockTs); err != nil {
		return nil, nil, err
	}
	if asks, err = askSnapshot.book.GetL2(depth, clockTs); err != nil {
		return nil, nil, err
	}
	return bids, asks, nil
}

// GetOrdersForOwner lists the resting orders placed from openOrders in the
// current snapshots, bids first.
func (p *OrderbookSubscriber) GetOrdersForOwner(openOrders solana.PublicKey) ([]serum.Order, error) {
	bidSnapshot, askSnapshot := p.bids.Load(), p.asks.Load()
	if bidSnapshot == nil || askSnapshot == nil {
		return nil, ErrNotLoaded
	}
	return serum.OrdersForOwner(bidSnapshot.book, askSnapshot.book, openOrders)
}

// GetL2Levels streams aggregated levels of one side, best price first, from
// the snapshot current at the time of the call.
func (p *OrderbookSubscriber) GetL2Levels(side serum.Side, clockTs int64) *common.Generator[serum.OrderInfo, int] {
	snapshot := p.book(side)
	return common.NewGenerator(func(yield common.YieldFn[serum.OrderInfo, int]) {
		if snapshot == nil {
			return
		}
		book := snapshot.book
		var (
			idx     int
			stopped bool
			pending *serum.L2LevelLots
		)
		err := book.Slab.Items(side == serum.SideBid, func(leaf *serum.SlabLeafNode) error {
			if book.IsLeafExpired(leaf, clockTs) {
				return nil
			}
			price := serum.GetPriceFromKey(leaf.Key)
			if pending != nil && pending.PriceLots == price {
				size, err := serum.AddSizeLots(pending.SizeLots, leaf.Quantity)
				if err != nil {
					return err
				}
				pending.SizeLots = size
				return nil
			}
			if pending != nil {
				if yield(book.ToOrderInfo(pending.PriceLots, pending.SizeLots), idx) {
					stopped = true
					return serum.ErrStopIteration
				}
				idx++
			}
			pending = &serum.L2LevelLots{PriceLots: price, SizeLots: leaf.Quantity}
			return nil
		})
		if err != nil {
			p.logger.Errorw("l2 levels", "side", side.String(), "err", err)
			return
		}
		if pending != nil && !stopped {
			yield(book.ToOrderInfo(pending.PriceLots, pending.SizeLots), idx)
		}
	})
}

func (p *OrderbookSubscriber) closeSubscriptions() {
	for _, subscription := range p.subscriptions {
		subscription.Unsubscribe()
	}
	p.subscriptions = nil
}

func (p *OrderbookSubscriber) Unsubscribe() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.subscribed {
		return
	}
	p.cancel()
	p.closeSubscriptions()
	p.wg.Wait()
	p.subscribed = false
	p.logger.Infow("unsubscribed")
}
