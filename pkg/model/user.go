package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// AdminThreshold is the minimum admin level that unlocks the admin console.
const AdminThreshold = 6

// UserRecord is the server-returned account blob cached inside a session.
// The game database grew several aliases for the admin level over the years
// (admin_level, u_admin, user_admin); UnmarshalJSON folds them all into the
// single canonical AdminLevel field.
type UserRecord struct {
	ID           int       `json:"u_id"`
	Name         string    `json:"u_name"`
	Email        string    `json:"u_email,omitempty"`
	Money        int64     `json:"u_money"`
	Donate       int64     `json:"u_donate"`
	Score        int64     `json:"u_score"`
	Mute         int       `json:"u_mute"`
	IP           string    `json:"u_ip,omitempty"`
	Lifetime     int64     `json:"u_lifetime"` // accumulated play time, seconds
	AdminLevel   int       `json:"admin_level"`
	RegisteredAt time.Time `json:"u_date_registration"`
}

// IsAdmin reports whether the record clears the admin console threshold.
func (u *UserRecord) IsAdmin() bool {
	return u.AdminLevel >= AdminThreshold
}

// IsMuted reports whether the player's chat is currently muted.
func (u *UserRecord) IsMuted() bool {
	return u.Mute > 0
}

// userRecordWire mirrors UserRecord plus every legacy admin-level alias the
// upstream has been observed to emit. Numeric fields arrive as numbers or
// quoted strings depending on which backend produced the row.
type userRecordWire struct {
	ID           flexInt  `json:"u_id"`
	Name         string   `json:"u_name"`
	Email        string   `json:"u_email"`
	Money        flexInt  `json:"u_money"`
	Donate       flexInt  `json:"u_donate"`
	Score        flexInt  `json:"u_score"`
	Mute         flexInt  `json:"u_mute"`
	IP           string   `json:"u_ip"`
	Lifetime     flexInt  `json:"u_lifetime"`
	AdminLevel   *flexInt `json:"admin_level"`
	UAdmin       *flexInt `json:"u_admin"`
	UserAdmin    *flexInt `json:"user_admin"`
	RegisteredAt flexTime `json:"u_date_registration"`
}

// UnmarshalJSON decodes a user row, normalizing legacy admin-level aliases.
// Priority order matches the newest page variant: admin_level, then u_admin,
// then user_admin; absent means level 0.
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	var w userRecordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	u.ID = int(w.ID)
	u.Name = w.Name
	u.Email = w.Email
	u.Money = int64(w.Money)
	u.Donate = int64(w.Donate)
	u.Score = int64(w.Score)
	u.Mute = int(w.Mute)
	u.IP = w.IP
	u.Lifetime = int64(w.Lifetime)
	u.RegisteredAt = time.Time(w.RegisteredAt)

	switch {
	case w.AdminLevel != nil:
		u.AdminLevel = int(*w.AdminLevel)
	case w.UAdmin != nil:
		u.AdminLevel = int(*w.UAdmin)
	case w.UserAdmin != nil:
		u.AdminLevel = int(*w.UserAdmin)
	default:
		u.AdminLevel = 0
	}

	return nil
}

// DisplayStats returns the allow-listed stats shown on the profile page, in
// render order. Fields outside this list are never displayed, replacing the
// old "probe every key on the object" behavior.
func (u *UserRecord) DisplayStats() []Stat {
	return []Stat{
		{Key: "u_money", Label: "Money", Value: strconv.FormatInt(u.Money, 10)},
		{Key: "u_donate", Label: "Donate", Value: strconv.FormatInt(u.Donate, 10)},
		{Key: "u_score", Label: "Score", Value: strconv.FormatInt(u.Score, 10)},
		{Key: "u_lifetime", Label: "Play time", Value: strconv.FormatInt(u.Lifetime, 10)},
		{Key: "admin_level", Label: "Admin level", Value: strconv.Itoa(u.AdminLevel)},
	}
}

// Stat is one profile display entry.
type Stat struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// flexInt decodes JSON numbers that may arrive quoted.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	if s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// MySQL occasionally hands back floats for integer columns.
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return err
		}
		*f = flexInt(fl)
		return nil
	}
	*f = flexInt(n)
	return nil
}

// flexTime decodes the handful of timestamp layouts the backends emit.
type flexTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = flexTime(time.Time{})
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = flexTime(time.Time{})
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	*f = flexTime(time.Time{})
	return nil
}
