package gameapi

import (
	"context"
	"net/url"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// CheckBlock asks the ip-guard whether an address is currently blocked.
func (c *Client) CheckBlock(ctx context.Context, ip string) (*GuardStatus, error) {
	req := map[string]any{
		"action": "check_block",
		"ip":     ip,
	}
	var status GuardStatus
	if err := c.post(ctx, "ipguard.check", c.config.Endpoints.IPGuard, req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RecordAttempt reports a login outcome to the ip-guard. A success resets
// the address's failure counter; failures accumulate toward the temporary
// (3 attempts) and permanent (5 attempts) blocks.
func (c *Client) RecordAttempt(ctx context.Context, ip, login string, success bool) (*GuardStatus, error) {
	req := map[string]any{
		"action":  "record_attempt",
		"ip":      ip,
		"login":   login,
		"success": success,
	}
	var status GuardStatus
	if err := c.post(ctx, "ipguard.record", c.config.Endpoints.IPGuard, req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListBlocks returns every tracked address, most recently touched first.
func (c *Client) ListBlocks(ctx context.Context) ([]IPBlock, error) {
	req := map[string]any{"action": "list_blocks"}
	var resp struct {
		Blocks []IPBlock `json:"blocks"`
	}
	if err := c.post(ctx, "ipguard.list", c.config.Endpoints.IPGuard, req, &resp); err != nil {
		return nil, err
	}
	return resp.Blocks, nil
}

// Unblock clears all blocks and counters for an address.
func (c *Client) Unblock(ctx context.Context, ip string) error {
	req := map[string]any{
		"action": "unblock",
		"ip":     ip,
	}
	return c.post(ctx, "ipguard.unblock", c.config.Endpoints.IPGuard, req, nil)
}

// FetchLogs returns a filtered page of game/site logs.
func (c *Client) FetchLogs(ctx context.Context, opts model.ListOptions) (*LogsPage, error) {
	opts.Clamp()
	q := url.Values{
		"limit":  {itoa(opts.Limit)},
		"offset": {itoa(opts.Offset)},
	}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Username != "" {
		q.Set("user_name", opts.Username)
	}
	var page LogsPage
	if err := c.get(ctx, "logs.fetch", c.config.Endpoints.Logs, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RecordLog appends an audit log entry. Best-effort callers ignore the
// error; losing an audit row must never fail the action it describes.
func (c *Client) RecordLog(ctx context.Context, entry LogEntry) error {
	if entry.Category == "" {
		entry.Category = "general"
	}
	return c.post(ctx, "logs.record", c.config.Endpoints.Logs, entry, nil)
}
