package gameapi

import (
	"context"
	"net/url"
	"strconv"
)

// FetchSettings returns the server branding/settings map.
func (c *Client) FetchSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	if err := c.get(ctx, "settings.fetch", c.config.Endpoints.Settings, nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings writes settings keys. The upstream re-checks the caller's
// admin level server-side.
func (c *Client) UpdateSettings(ctx context.Context, userID int, updates map[string]string) error {
	req := map[string]any{
		"user_id":  userID,
		"settings": updates,
	}
	return c.post(ctx, "settings.update", c.config.Endpoints.Settings, req, nil)
}

// FetchOnline returns the live player count.
func (c *Client) FetchOnline(ctx context.Context) (*OnlineStatus, error) {
	q := url.Values{"check": {"online"}}
	var status OnlineStatus
	if err := c.get(ctx, "settings.online", c.config.Endpoints.Settings, q, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// FetchRules returns all rules, ordered by category then rule order.
func (c *Client) FetchRules(ctx context.Context) ([]Rule, error) {
	var resp struct {
		Rules []Rule `json:"rules"`
	}
	if err := c.get(ctx, "rules.fetch", c.config.Endpoints.Rules, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rules, nil
}

// SaveRule creates a rule, or updates it when rule.ID is set. The upstream
// verifies the username's admin level before writing.
func (c *Client) SaveRule(ctx context.Context, username string, rule Rule) error {
	req := map[string]any{
		"username":    username,
		"category":    rule.Category,
		"title":       rule.Title,
		"description": rule.Description,
		"rule_order":  rule.RuleOrder,
	}
	if rule.ID != 0 {
		req["rule_id"] = rule.ID
	}
	return c.post(ctx, "rules.save", c.config.Endpoints.Rules, req, nil)
}

// DeleteRule removes a rule by id.
func (c *Client) DeleteRule(ctx context.Context, username string, ruleID int) error {
	req := map[string]any{
		"username": username,
		"rule_id":  ruleID,
	}
	return c.del(ctx, "rules.delete", c.config.Endpoints.Rules, nil, req, nil)
}

// FetchNews returns the latest news posts, newest first.
func (c *Client) FetchNews(ctx context.Context) ([]NewsItem, error) {
	var resp struct {
		News []NewsItem `json:"news"`
	}
	if err := c.get(ctx, "news.fetch", c.config.Endpoints.News, nil, &resp); err != nil {
		return nil, err
	}
	return resp.News, nil
}

// SaveNews creates a news post, or updates it when item.ID is set.
func (c *Client) SaveNews(ctx context.Context, username string, item NewsItem) error {
	req := map[string]any{
		"username":    username,
		"title":       item.Title,
		"description": item.Description,
		"image_url":   item.ImageURL,
	}
	if item.ID != 0 {
		req["news_id"] = item.ID
	}
	return c.post(ctx, "news.save", c.config.Endpoints.News, req, nil)
}

// DeleteNews removes a news post by id.
func (c *Client) DeleteNews(ctx context.Context, username string, newsID int) error {
	req := map[string]any{
		"username": username,
		"news_id":  newsID,
	}
	return c.del(ctx, "news.delete", c.config.Endpoints.News, nil, req, nil)
}

func itoa(n int) string { return strconv.Itoa(n) }
