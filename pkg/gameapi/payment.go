package gameapi

import "context"

// CreatePayment registers a donation order with the payment gateway and
// returns the hosted payment page URL.
func (c *Client) CreatePayment(ctx context.Context, amount float64, userID int, username string) (*PaymentLink, error) {
	const op = "payment.create"

	req := map[string]any{
		"action":   "create_payment",
		"amount":   amount,
		"user_id":  userID,
		"username": username,
	}
	var resp struct {
		Success    bool   `json:"success"`
		PaymentURL string `json:"payment_url"`
		OrderID    string `json:"order_id"`
		Error      string `json:"error"`
	}
	if err := c.post(ctx, op, c.config.Endpoints.Payment, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError(op, 400, resp.Error)
	}
	return &PaymentLink{PaymentURL: resp.PaymentURL, OrderID: resp.OrderID}, nil
}

// CheckPayment queries the gateway for an order's status.
func (c *Client) CheckPayment(ctx context.Context, orderID string) (string, error) {
	const op = "payment.check"

	req := map[string]any{
		"action":   "check_payment",
		"order_id": orderID,
	}
	var resp struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
		Error   string `json:"error"`
	}
	if err := c.post(ctx, op, c.config.Endpoints.Payment, req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", NewServerError(op, 400, resp.Error)
	}
	return resp.Status, nil
}
