package gameapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// FetchUsers returns one page of the user roster.
func (c *Client) FetchUsers(ctx context.Context, opts model.ListOptions) (*UsersPage, error) {
	opts.Clamp()
	q := url.Values{
		"limit":  {itoa(opts.Limit)},
		"offset": {itoa(opts.Offset)},
	}
	var page UsersPage
	if err := c.get(ctx, "users.list", c.config.Endpoints.Users, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchUser returns a single user row. Used by the session refresher to
// re-validate cached records without retaining credentials.
func (c *Client) FetchUser(ctx context.Context, userID int) (*model.UserRecord, error) {
	const op = "users.get"

	q := url.Values{"user_id": {itoa(userID)}}
	var resp struct {
		Users []model.UserRecord `json:"users"`
	}
	if err := c.get(ctx, op, c.config.Endpoints.Users, q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, NewServerError(op, 404, fmt.Sprintf("user %d not found", userID))
	}
	return &resp.Users[0], nil
}

// UpdateUser applies an admin patch (money, donate, mute) to a user.
func (c *Client) UpdateUser(ctx context.Context, userID int, patch UserPatch) error {
	req := map[string]any{
		"user_id": userID,
		"action":  "update",
	}
	if patch.Money != nil {
		req["u_money"] = *patch.Money
	}
	if patch.Donate != nil {
		req["u_donate"] = *patch.Donate
	}
	if patch.Mute != nil {
		req["u_mute"] = *patch.Mute
	}
	return c.post(ctx, "users.update", c.config.Endpoints.Users, req, nil)
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, userID int) error {
	q := url.Values{"user_id": {itoa(userID)}}
	return c.del(ctx, "users.delete", c.config.Endpoints.Users, q, nil, nil)
}

// FetchInventory returns the occupied inventory slots for a player.
func (c *Client) FetchInventory(ctx context.Context, userID int) ([]InventoryItem, error) {
	q := url.Values{"user_id": {itoa(userID)}}
	var resp struct {
		Items []InventoryItem `json:"items"`
	}
	if err := c.get(ctx, "inventory.fetch", c.config.Endpoints.Inventory, q, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// SellItem sells a case-won item out of an inventory slot. The upstream
// enforces the case-only and offline-only rules; its refusal messages come
// back verbatim.
func (c *Client) SellItem(ctx context.Context, userID, slot int) (*SellResult, error) {
	const op = "inventory.sell"

	req := map[string]any{
		"user_id": userID,
		"slot":    slot,
	}
	var resp struct {
		Success   bool   `json:"success"`
		ItemName  string `json:"item_name"`
		SellPrice int64  `json:"sell_price"`
		Error     string `json:"error"`
	}
	if err := c.post(ctx, op, c.config.Endpoints.Inventory, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError(op, 400, resp.Error)
	}
	return &SellResult{ItemName: resp.ItemName, SellPrice: resp.SellPrice}, nil
}
