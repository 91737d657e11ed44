package gameapi

import "context"

// FetchCases returns the available loot cases.
func (c *Client) FetchCases(ctx context.Context) ([]Case, error) {
	var resp struct {
		Cases []Case `json:"cases"`
	}
	if err := c.get(ctx, "cases.fetch", c.config.Endpoints.Cases, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Cases, nil
}

// OpenCase performs the server-authoritative draw. The server debits the
// chosen currency, picks the won item, and returns the decoy sequence in the
// same response. Insufficient balance, an unknown case, or a full inventory
// all come back as business errors with the server's message verbatim.
func (c *Client) OpenCase(ctx context.Context, caseID, userID int, method PaymentMethod) (*OpenResult, error) {
	const op = "cases.open"

	if !method.Valid() {
		method = PayDonate
	}

	req := map[string]any{
		"case_id":        caseID,
		"user_id":        userID,
		"payment_method": string(method),
	}
	var resp struct {
		Success bool `json:"success"`
		OpenResult
		Error string `json:"error"`
	}
	if err := c.post(ctx, op, c.config.Endpoints.Cases, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError(op, 400, resp.Error)
	}
	return &resp.OpenResult, nil
}

// FetchCaseCatalog returns the management view: every case config and the
// full loot table in one response.
func (c *Client) FetchCaseCatalog(ctx context.Context) (*CaseCatalog, error) {
	var catalog CaseCatalog
	if err := c.get(ctx, "cases.catalog", c.config.Endpoints.CasesAdmin, nil, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// UpdateCasePrices replaces both prices of a case. The endpoint writes them
// as a pair, so the caller always sends both.
func (c *Client) UpdateCasePrices(ctx context.Context, adminID, caseID int, money, donate int64) error {
	const op = "cases.reprice"

	req := map[string]any{
		"user_id":      adminID,
		"case_id":      caseID,
		"price_money":  money,
		"price_donate": donate,
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.post(ctx, op, c.config.Endpoints.CasesAdmin, req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return NewServerError(op, 400, resp.Error)
	}
	return nil
}

// UpdateLootItem changes a loot item's sell price and/or drop chance.
// Nil patch fields are omitted and keep their stored value.
func (c *Client) UpdateLootItem(ctx context.Context, adminID, lootID int, patch LootPatch) error {
	const op = "cases.loot_update"

	req := map[string]any{
		"user_id": adminID,
		"loot_id": lootID,
	}
	if patch.Price != nil {
		req["loot_price"] = *patch.Price
	}
	if patch.DropChance != nil {
		req["drop_chance"] = *patch.DropChance
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.put(ctx, op, c.config.Endpoints.CasesAdmin, req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return NewServerError(op, 400, resp.Error)
	}
	return nil
}
