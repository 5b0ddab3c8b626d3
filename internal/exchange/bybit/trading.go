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

// PlaceOrder submits a limit order. When the request asks for post-only the
// order is maker-only: the venue rejects it rather than letting it cross.
// Venue rejections are surfaced as ErrOrderRejected and never retried here.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderAck, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if req.Price <= 0 || req.Qty <= 0 {
		return nil, fmt.Errorf("price and qty must be positive")
	}

	timeInForce := "GTC"
	if req.PostOnly {
		timeInForce = "PostOnly"
	}

	params := map[string]interface{}{
		"category":    category,
		"symbol":      req.Symbol,
		"side":        string(req.Side),
		"orderType":   "Limit",
		"qty":         strconv.FormatFloat(req.Qty, 'f', -1, 64),
		"price":       strconv.FormatFloat(req.Price, 'f', -1, 64),
		"timeInForce": timeInForce,
	}
	if req.OrderLinkID != "" {
		params["orderLinkId"] = req.OrderLinkID
	}

	var ack *exchange.OrderAck
	err := withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
		if err != nil {
			return wrapTransportError("place order", err)
		}
		ack, err = parsePlaceOrderResponse(result, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ack, nil
}

// CancelOrder cancels a single order. An order that already filled or
// expired surfaces as ErrOrderAlreadyClosed; callers treat that as success.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	return withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
		if err != nil {
			return wrapTransportError("cancel order", err)
		}
		serverResp := result
		return classifyRetCode(serverResp.RetCode, serverResp.RetMsg)
	})
}

// CancelAllOrders cancels every open order for the symbol in one call.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	return withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).CancelAllOrders(ctx)
		if err != nil {
			return wrapTransportError("cancel all orders", err)
		}
		serverResp := result
		return classifyRetCode(serverResp.RetCode, serverResp.RetMsg)
	})
}

// GetOpenOrders lists the orders currently resting on the book.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OrderAck, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"openOnly": 0,
	}

	var orders []exchange.OrderAck
	err := withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
		if err != nil {
			return wrapTransportError("get open orders", err)
		}
		orders, err = parseOpenOrdersResponse(result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetExecutions returns the fills recorded for the symbol since the given
// time, oldest first. The caller owns cursor semantics on top of this.
func (c *Client) GetExecutions(ctx context.Context, symbol string, since time.Time) ([]exchange.Execution, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
		"limit":    100,
	}
	if !since.IsZero() {
		params["startTime"] = since.UnixMilli()
	}

	var executions []exchange.Execution
	err := withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetTradeHistory(ctx)
		if err != nil {
			return wrapTransportError("get executions", err)
		}
		executions, err = parseExecutionsResponse(result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return executions, nil
}

// GetPosition returns the net position for the symbol. A flat book comes
// back as size zero, never as an error.
func (c *Client) GetPosition(ctx context.Context, symbol string) (*exchange.Position, error) {
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	var position *exchange.Position
	err := withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
		if err != nil {
			return wrapTransportError("get position", err)
		}
		position, err = parsePositionResponse(result, symbol)
		return err
	})
	if err != nil {
		return nil, err
	}
	return position, nil
}

// SetLeverage applies the configured leverage to the symbol. Bybit returns
// an error when the leverage is already set; that is treated as success.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	lv := strconv.Itoa(leverage)
	params := map[string]interface{}{
		"category":     category,
		"symbol":       symbol,
		"buyLeverage":  lv,
		"sellLeverage": lv,
	}

	return withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionLeverage(ctx)
		if err != nil {
			return wrapTransportError("set leverage", err)
		}
		serverResp := result
		// 110043: leverage not modified
		if serverResp.RetCode == 110043 {
			return nil
		}
		return classifyRetCode(serverResp.RetCode, serverResp.RetMsg)
	})
}

func parsePlaceOrderResponse(response interface{}, req exchange.OrderRequest) (*exchange.OrderAck, error) {
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

	var orderResult struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := json.Unmarshal(resultBytes, &orderResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order result: %w", err)
	}

	return &exchange.OrderAck{
		OrderID:     orderResult.OrderID,
		OrderLinkID: orderResult.OrderLinkID,
		Symbol:      req.Symbol,
		Side:        req.Side,
		Price:       req.Price,
		Qty:         req.Qty,
		Status:      "New",
	}, nil
}

func parseOpenOrdersResponse(response interface{}) ([]exchange.OrderAck, error) {
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

	var listResult struct {
		List []struct {
			OrderID     string `json:"orderId"`
			OrderLinkID string `json:"orderLinkId"`
			Symbol      string `json:"symbol"`
			Side        string `json:"side"`
			Price       string `json:"price"`
			Qty         string `json:"qty"`
			OrderStatus string `json:"orderStatus"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &listResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order list: %w", err)
	}

	orders := make([]exchange.OrderAck, 0, len(listResult.List))
	for _, item := range listResult.List {
		orders = append(orders, exchange.OrderAck{
			OrderID:     item.OrderID,
			OrderLinkID: item.OrderLinkID,
			Symbol:      item.Symbol,
			Side:        exchange.OrderSide(item.Side),
			Price:       parseFloat(item.Price),
			Qty:         parseFloat(item.Qty),
			Status:      item.OrderStatus,
		})
	}
	return orders, nil
}

func parseExecutionsResponse(response interface{}) ([]exchange.Execution, error) {
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

	var listResult struct {
		List []struct {
			ExecID    string `json:"execId"`
			OrderID   string `json:"orderId"`
			Symbol    string `json:"symbol"`
			Side      string `json:"side"`
			ExecPrice string `json:"execPrice"`
			ExecQty   string `json:"execQty"`
			ExecTime  string `json:"execTime"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &listResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution list: %w", err)
	}

	// Bybit returns newest first; callers want chronological order.
	executions := make([]exchange.Execution, 0, len(listResult.List))
	for i := len(listResult.List) - 1; i >= 0; i-- {
		item := listResult.List[i]
		executions = append(executions, exchange.Execution{
			ExecID:   item.ExecID,
			OrderID:  item.OrderID,
			Symbol:   item.Symbol,
			Side:     exchange.OrderSide(item.Side),
			Price:    parseFloat(item.ExecPrice),
			Qty:      parseFloat(item.ExecQty),
			ExecTime: parseTimestampMs(item.ExecTime),
		})
	}
	return executions, nil
}

func parsePositionResponse(response interface{}, symbol string) (*exchange.Position, error) {
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

	var listResult struct {
		List []struct {
			Symbol         string `json:"symbol"`
			Side           string `json:"side"`
			Size           string `json:"size"`
			AvgPrice       string `json:"avgPrice"`
			CurRealisedPnl string `json:"curRealisedPnl"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &listResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position list: %w", err)
	}

	for _, item := range listResult.List {
		if item.Symbol != symbol {
			continue
		}
		return &exchange.Position{
			Symbol:      item.Symbol,
			Side:        item.Side,
			Size:        parseFloat(item.Size),
			EntryPrice:  parseFloat(item.AvgPrice),
			RealisedPnl: parseFloat(item.CurRealisedPnl),
		}, nil
	}

	return &exchange.Position{Symbol: symbol, Side: "None"}, nil
}
