package tinvest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"YieldPull/internal/domain/models"
	drepo "YieldPull/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Stream implements a QuoteStream backed by the market-data WebSocket.
type Stream struct {
	token          string
	websocketURL   string
	instruments    []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// NewStream creates a new market-data QuoteStream.
func NewStream(token, websocketURL string, instruments []string, reconnectDelay, pingInterval time.Duration) drepo.QuoteStream {
	return &Stream{
		token:          token,
		websocketURL:   websocketURL,
		instruments:    instruments,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	h := http.Header{"Authorization": []string{"Bearer " + s.token}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, h)
	if err != nil {
		return fmt.Errorf("tinvest connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	log.Printf("tinvest: stream connected")
	return nil
}

// Subscribe subscribes to last-price updates for configured instruments.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("tinvest not connected")
	}
	ids := make([]map[string]string, 0, len(s.instruments))
	for _, id := range s.instruments {
		ids = append(ids, map[string]string{"instrumentId": id})
	}
	msg := map[string]interface{}{
		"subscribeLastPriceRequest": map[string]interface{}{
			"subscriptionAction": "SUBSCRIPTION_ACTION_SUBSCRIBE",
			"instruments":        ids,
		},
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe last price: %w", err)
	}
	log.Printf("tinvest: subscribed %d instruments", len(s.instruments))
	return nil
}

type wsLastPrice struct {
	Figi  string     `json:"figi"`
	Price moneyValue `json:"price"`
	Time  time.Time  `json:"time"`
}

type wsMessage struct {
	LastPrice *wsLastPrice `json:"lastPrice"`
}

// Read streams Quote events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Quote, <-chan error) {
	quotes := make(chan *models.Quote, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(quotes)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("tinvest conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("tinvest read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-price frames
					continue
				}
				if m.LastPrice == nil || m.LastPrice.Figi == "" {
					continue
				}
				ts := m.LastPrice.Time.Unix()
				if m.LastPrice.Time.IsZero() {
					ts = time.Now().Unix()
				}
				q := &models.Quote{
					InstrumentID: m.LastPrice.Figi,
					Timestamp:    ts,
					Price:        m.LastPrice.Price.Float(),
				}
				select {
				case quotes <- q:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return quotes, errs
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
