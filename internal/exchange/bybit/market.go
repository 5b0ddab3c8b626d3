package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
)

// GetOrderBook fetches the top of book for a symbol.
func (c *Client) GetOrderBook(ctx context.Context, symbol string) (*exchange.OrderBook, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"limit":    1,
	}

	var book *exchange.OrderBook
	err := withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderBookInfo(ctx)
		if err != nil {
			return wrapTransportError("get order book", err)
		}
		book, err = parseOrderBookResponse(result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// GetInstrument fetches the trading constraints (tick size, lot size,
// minimum order quantity) for a symbol.
func (c *Client) GetInstrument(ctx context.Context, symbol string) (*exchange.Instrument, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	var instrument *exchange.Instrument
	err := withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
		if err != nil {
			return wrapTransportError("get instrument info", err)
		}
		instrument, err = parseInstrumentResponse(result, symbol)
		return err
	})
	if err != nil {
		return nil, err
	}
	return instrument, nil
}

func parseOrderBookResponse(response interface{}) (*exchange.OrderBook, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := classifyRetCode(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var bookResult struct {
		Symbol string     `json:"s"`
		Bids   [][]string `json:"b"`
		Asks   [][]string `json:"a"`
		Ts     int64      `json:"ts"`
	}
	if err := json.Unmarshal(resultBytes, &bookResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order book result: %w", err)
	}

	if len(bookResult.Bids) == 0 || len(bookResult.Asks) == 0 {
		return nil, &exchange.VenueError{
			Code:    exchange.ErrBookUnavailable.Code,
			Message: fmt.Sprintf("empty order book for %s", bookResult.Symbol),
		}
	}

	bestBid := parseFloat(bookResult.Bids[0][0])
	bestAsk := parseFloat(bookResult.Asks[0][0])
	if bestBid <= 0 || bestAsk <= 0 || bestAsk <= bestBid {
		return nil, &exchange.VenueError{
			Code:    exchange.ErrBookUnavailable.Code,
			Message: fmt.Sprintf("unusable book for %s: bid=%v ask=%v", bookResult.Symbol, bestBid, bestAsk),
		}
	}

	capturedAt := time.Now()
	if bookResult.Ts > 0 {
		capturedAt = time.UnixMilli(bookResult.Ts)
	}

	return &exchange.OrderBook{
		Symbol:     bookResult.Symbol,
		BestBid:    bestBid,
		BestAsk:    bestAsk,
		CapturedAt: capturedAt,
	}, nil
}

func parseInstrumentResponse(response interface{}, targetSymbol string) (*exchange.Instrument, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := classifyRetCode(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var instrumentResult struct {
		List []struct {
			Symbol      string `json:"symbol"`
			Status      string `json:"status"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
			LotSizeFilter struct {
				MinOrderQty string `json:"minOrderQty"`
				QtyStep     string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &instrumentResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instrument result: %w", err)
	}

	for _, item := range instrumentResult.List {
		if item.Symbol != targetSymbol {
			continue
		}
		if item.Status != "Trading" {
			return nil, &exchange.VenueError{
				Code:    exchange.ErrBookUnavailable.Code,
				Message: fmt.Sprintf("symbol %s is not trading (status %s)", targetSymbol, item.Status),
			}
		}
		return &exchange.Instrument{
			Symbol:      item.Symbol,
			TickSize:    parseFloat(item.PriceFilter.TickSize),
			LotSize:     parseFloat(item.LotSizeFilter.QtyStep),
			MinOrderQty: parseFloat(item.LotSizeFilter.MinOrderQty),
		}, nil
	}

	return nil, fmt.Errorf("symbol %s not found on %s", targetSymbol, category)
}

func parseFloat(s string) float64 {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return value
}

func parseTimestampMs(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
