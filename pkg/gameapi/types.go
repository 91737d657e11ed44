package gameapi

import (
	"encoding/json"
	"strconv"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// LooseInt decodes JSON integers that may arrive quoted or as floats.
type LooseInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (l *LooseInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*l = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return err
		}
		n = int64(f)
	}
	*l = LooseInt(n)
	return nil
}

// LooseFloat decodes JSON floats that may arrive quoted. MySQL DECIMAL
// columns serialize as strings on this backend.
type LooseFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (l *LooseFloat) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*l = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*l = LooseFloat(f)
	return nil
}

// Settings is the flat key/value map from the settings endpoint.
type Settings map[string]string

// Well-known settings keys.
const (
	SettingServerName  = "server_name"
	SettingDiscordLink = "discord_link"
	SettingVKLink      = "vk_link"
	SettingForumLink   = "forum_link"
)

// ServerName returns the branded server name, or a fallback.
func (s Settings) ServerName() string {
	if v := s[SettingServerName]; v != "" {
		return v
	}
	return "SAMP Survival"
}

// OnlineStatus is the current player count report.
type OnlineStatus struct {
	Online     int `json:"online"`
	MaxPlayers int `json:"maxPlayers"`
}

// Rule is one server rule row.
type Rule struct {
	ID          int    `json:"id"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	RuleOrder   int    `json:"rule_order"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// NewsItem is one news post.
type NewsItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// PaymentMethod selects which of the two currencies pays for a case.
type PaymentMethod string

const (
	PayMoney  PaymentMethod = "money"  // in-game currency
	PayDonate PaymentMethod = "donate" // donation currency
)

// Valid reports whether the method is one of the two known currencies.
func (m PaymentMethod) Valid() bool {
	return m == PayMoney || m == PayDonate
}

// CaseItem is a loot entry shown in case contents and the reveal strip.
// Price and quality arrive as numbers or quoted strings depending on the
// backend, hence LooseInt.
type CaseItem struct {
	LootID  string   `json:"loot_id,omitempty"`
	Name    string   `json:"loot_name"`
	Type    string   `json:"loot_type"`
	Price   LooseInt `json:"loot_price"`
	Quality LooseInt `json:"loot_quality"`
}

// Same reports whether two items are the same loot. The upstream identifies
// items by loot_id where present and by name otherwise.
func (i CaseItem) Same(other CaseItem) bool {
	if i.LootID != "" && other.LootID != "" {
		return i.LootID == other.LootID
	}
	return i.Name == other.Name
}

// Case is a purchasable loot case.
type Case struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	PriceMoney  int64      `json:"price_money"`
	PriceDonate int64      `json:"price_donate"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Rarity      string     `json:"rarity"`
	Items       []CaseItem `json:"items"`
}

// Price returns the case price in the given currency.
func (c Case) Price(method PaymentMethod) int64 {
	if method == PayMoney {
		return c.PriceMoney
	}
	return c.PriceDonate
}

// CaseConfig is one row of the case pricing table on the management panel.
type CaseConfig struct {
	ID          LooseInt `json:"case_id"`
	Name        string   `json:"case_name"`
	PriceMoney  LooseInt `json:"price_money"`
	PriceDonate LooseInt `json:"price_donate"`
	Description string   `json:"description"`
	Rarity      string   `json:"rarity"`
}

// LootConfig is one loot row with its admin-tunable sell price and drop
// chance.
type LootConfig struct {
	ID         LooseInt   `json:"loot_id"`
	Name       string     `json:"loot_name"`
	Type       string     `json:"loot_type"`
	Price      LooseInt   `json:"loot_price"`
	DropChance LooseFloat `json:"drop_chance"`
}

// CaseCatalog is the full management view: case pricing plus the loot table.
type CaseCatalog struct {
	Cases []CaseConfig `json:"cases"`
	Items []LootConfig `json:"items"`
}

// LootPatch holds the admin-editable loot fields. Nil means unchanged.
type LootPatch struct {
	Price      *int64
	DropChance *float64
}

// OpenResult is the server-authoritative outcome of a case open: the won
// item plus the decoy sequence for the reveal animation. The won item is
// also present inside AnimationItems at the designated stop index.
type OpenResult struct {
	WonItem        CaseItem   `json:"won_item"`
	AnimationItems []CaseItem `json:"animation_items"`
	InventorySlot  int        `json:"inventory_slot"`
}

// InventoryItem is one occupied inventory slot.
type InventoryItem struct {
	Slot     int    `json:"slot"`
	LootID   string `json:"loot_id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	FromCase bool   `json:"from_case"`
	CanSell  bool   `json:"can_sell"`
}

// SellResult reports a completed inventory sale.
type SellResult struct {
	ItemName  string `json:"item_name"`
	SellPrice int64  `json:"sell_price"`
}

// UsersPage is one page of the user roster.
type UsersPage struct {
	Users  []model.UserRecord `json:"users"`
	Total  int                `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// UserPatch holds the admin-editable user fields. Nil means unchanged.
type UserPatch struct {
	Money  *int64
	Donate *int64
	Mute   *int
}

// LogEntry is one game/site audit log row.
type LogEntry struct {
	ID        int    `json:"id,omitempty"`
	Category  string `json:"category"`
	UserID    int    `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// LogsPage is one filtered page of log entries.
type LogsPage struct {
	Logs  []LogEntry `json:"logs"`
	Total int        `json:"total"`
}

// GuardStatus is the ip-guard verdict for an address.
type GuardStatus struct {
	Blocked      bool   `json:"blocked"`
	Reason       string `json:"reason,omitempty"` // "temporary" or "permanent"
	Message      string `json:"message,omitempty"`
	Attempts     int    `json:"attempts,omitempty"`
	Remaining    int    `json:"remaining,omitempty"`
	BlockedUntil string `json:"blocked_until,omitempty"`
}

// IPBlock is one row of the block table.
type IPBlock struct {
	ID                 int    `json:"id"`
	IPAddress          string `json:"ip_address"`
	FailedAttempts     int    `json:"failed_attempts"`
	TempBlockedUntil   string `json:"temp_blocked_until,omitempty"`
	PermanentlyBlocked bool   `json:"permanently_blocked"`
	AttemptedLogin     string `json:"attempted_login,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

// PaymentLink is a created payment order.
type PaymentLink struct {
	PaymentURL string `json:"payment_url"`
	OrderID    string `json:"order_id"`
}
