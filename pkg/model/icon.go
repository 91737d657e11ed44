package model

import "fmt"

// CategoryIcon is the closed set of icons a rule category may use. The old
// console passed arbitrary icon names straight to the renderer; unknown
// names silently drew nothing.
type CategoryIcon string

const (
	IconFolder  CategoryIcon = "Folder"
	IconUsers   CategoryIcon = "Users"
	IconShield  CategoryIcon = "Shield"
	IconSwords  CategoryIcon = "Swords"
	IconFlag    CategoryIcon = "Flag"
	IconScale   CategoryIcon = "Scale"
	IconMessage CategoryIcon = "MessageCircle"
	IconStar    CategoryIcon = "Star"
)

// CategoryIcons lists every valid icon, in picker order.
var CategoryIcons = []CategoryIcon{
	IconFolder, IconUsers, IconShield, IconSwords,
	IconFlag, IconScale, IconMessage, IconStar,
}

// ParseCategoryIcon validates an icon name. Empty defaults to IconFolder.
func ParseCategoryIcon(s string) (CategoryIcon, error) {
	if s == "" {
		return IconFolder, nil
	}
	for _, ic := range CategoryIcons {
		if string(ic) == s {
			return ic, nil
		}
	}
	return "", fmt.Errorf("unknown category icon %q", s)
}

// RuleCategory is a locally persisted grouping for rules. The taxonomy lives
// in the site's own store, not in the game database: the upstream rules
// endpoint only knows the category string on each rule.
type RuleCategory struct {
	ID        string       `json:"id"`
	Label     string       `json:"label"`
	Icon      CategoryIcon `json:"icon"`
	SortOrder int          `json:"sort_order"`
}
