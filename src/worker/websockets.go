package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

const CoinbaseAdvancedTradeURL = "wss://advanced-trade-ws.coinbase.com"

// defaultMaxPriceAge is how long a cached price is served without a fresh ticker.
const defaultMaxPriceAge = time.Minute

type CoinbaseTickerDTO struct {
	Type         string `json:"type"`
	ProductID    string `json:"product_id"`
	Price        string `json:"price"`
	Volume24High string `json:"volume_24_h"`
}

type CoinbaseEventDTO struct {
	Type    string              `json:"type"`
	Tickers []CoinbaseTickerDTO `json:"tickers"`
}

type CoinbaseDTO struct {
	Channel        string             `json:"channel"`
	ClientID       string             `json:"client_id"`
	Timestamp      time.Time          `json:"timestamp"`
	SequenceNumber int                `json:"sequence_num"`
	Events         []CoinbaseEventDTO `json:"events"`
}

type WsSub struct {
	Type       string   `json:"type"`
	Channel    string   `json:"channel"`
	ProductIDs []string `json:"product_ids"`
}

func Subscribe(channel string, productIDs []string) *WsSub {
	return &WsSub{
		Type:       "subscribe",
		Channel:    channel,
		ProductIDs: productIDs,
	}
}

type cachedPrice struct {
	price      float64
	updatedAt  time.Time
	receivedAt time.Time
}

// CoinbaseTickerExchange keeps the last traded price per product from the coinbase ticker
// channel. Polling reads the cache, so GetLatestPrice never blocks on the network.
type CoinbaseTickerExchange struct {
	url            string
	productIDs     []string
	reconnectDelay time.Duration
	maxPriceAge    time.Duration
	now            func() time.Time

	mutex  sync.RWMutex
	prices map[string]cachedPrice
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

func (e *CoinbaseTickerExchange) dial() (*websocket.Conn, error) {
	log.Infof("coinbase: connecting to %s", e.url)

	c, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	if err != nil {
		return nil, fmt.Errorf("coinbase: dial: %w", err)
	}

	payload := Subscribe("ticker", e.productIDs)
	if err := c.WriteJSON(payload); err != nil {
		c.Close()
		return nil, fmt.Errorf("coinbase: failed to write subscribe payload %v: %w", payload, err)
	}

	return c, nil
}

// Connect dials the websocket and starts the read loop. The loop reconnects on read errors
// until Close is called or ctx is cancelled.
func (e *CoinbaseTickerExchange) Connect(ctx context.Context) error {
	c, err := e.dial()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)

	e.mutex.Lock()
	e.conn = c
	e.cancel = cancel
	e.done = make(chan struct{})
	e.closed = false
	done := e.done
	e.mutex.Unlock()

	go e.run(ctx, done)

	return nil
}

func (e *CoinbaseTickerExchange) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		e.mutex.RLock()
		c := e.conn
		e.mutex.RUnlock()

		if ctx.Err() != nil {
			return
		}

		c.SetReadDeadline(time.Now().UTC().Add(30 * time.Second))
		_, message, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			log.Errorf("coinbase: ReadMessage(): %v", err)
			c.Close()

			select {
			case <-ctx.Done():
				return
			case <-time.After(e.reconnectDelay):
			}

			newConn, newErr := e.dial()
			if newErr != nil {
				log.Errorf("coinbase: failed to reconnect: %v", newErr)
				continue
			}

			e.mutex.Lock()
			if e.closed {
				e.mutex.Unlock()
				newConn.Close()
				return
			}
			e.conn = newConn
			e.mutex.Unlock()
			continue
		}

		var update CoinbaseDTO
		if err := json.Unmarshal(message, &update); err != nil {
			log.Errorf("coinbase: failed to unmarshal json: %v", err)
			continue
		}

		if update.Channel == "ticker" || update.Channel == "ticker_batch" {
			e.apply(update)
		}
	}
}

func (e *CoinbaseTickerExchange) apply(update CoinbaseDTO) {
	receivedAt := e.now()
	ts := update.Timestamp
	if ts.IsZero() {
		ts = receivedAt.UTC()
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	for _, ev := range update.Events {
		for _, t := range ev.Tickers {
			price, err := strconv.ParseFloat(t.Price, 64)
			if err != nil || price <= 0 {
				log.Warnf("coinbase: skipping ticker %s with price %q", t.ProductID, t.Price)
				continue
			}

			e.prices[t.ProductID] = cachedPrice{price: price, updatedAt: ts, receivedAt: receivedAt}
		}
	}
}

func (e *CoinbaseTickerExchange) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	p, ok := e.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("CoinbaseTickerExchange.GetLatestPrice: %w: %s", models.ErrNoPriceAvailable, symbol)
	}

	if e.maxPriceAge > 0 {
		if age := e.now().Sub(p.receivedAt); age > e.maxPriceAge {
			return 0, fmt.Errorf("CoinbaseTickerExchange.GetLatestPrice: %w: %s last ticked %v ago", models.ErrNoPriceAvailable, symbol, age)
		}
	}

	return p.price, nil
}

// SetMaxPriceAge bounds how old a cached price may be before GetLatestPrice stops serving it.
// Zero disables the check.
func (e *CoinbaseTickerExchange) SetMaxPriceAge(d time.Duration) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.maxPriceAge = d
}

// GetLatestBar always returns nil: the ticker channel carries no candles.
func (e *CoinbaseTickerExchange) GetLatestBar(ctx context.Context, symbol string, timeframe string) (*models.Bar, error) {
	return nil, nil
}

func (e *CoinbaseTickerExchange) LastUpdate(symbol string) (time.Time, bool) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	p, ok := e.prices[symbol]
	return p.updatedAt, ok
}

func (e *CoinbaseTickerExchange) Close() error {
	e.mutex.Lock()
	if e.closed || e.cancel == nil {
		e.closed = true
		e.mutex.Unlock()
		return nil
	}

	e.closed = true
	e.cancel()
	c := e.conn
	done := e.done
	e.mutex.Unlock()

	err := c.Close()
	<-done

	return err
}

func NewCoinbaseTickerExchange(url string, productIDs []string) *CoinbaseTickerExchange {
	return &CoinbaseTickerExchange{
		url:            url,
		productIDs:     productIDs,
		reconnectDelay: 5 * time.Second,
		maxPriceAge:    defaultMaxPriceAge,
		now:            time.Now,
		prices:         make(map[string]cachedPrice),
	}
}
