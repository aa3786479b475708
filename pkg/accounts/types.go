package accounts

import (
	"fmt"
	"time"
)

// Account is a user account record
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstname,omitempty"`
	LastName  string    `json:"lastname,omitempty"`
	Country   string    `json:"country,omitempty"`
	Password  string    `json:"-"` // credential, never plaintext once stored
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Date returns the creation timestamp in the human-readable form shown to users,
// e.g. "March 3rd 2025, 4:05:06 pm".
func (a *Account) Date() string {
	return FormatDate(a.CreatedAt)
}

// FormatDate renders t as "January 2nd 2006, 3:04:05 pm"
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s %d%s %s", t.Format("January"), t.Day(), ordinalSuffix(t.Day()), t.Format("2006, 3:04:05 pm"))
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// clone returns a copy of the account so callers can't mutate stored state
func (a *Account) clone() *Account {
	c := *a
	return &c
}

// RegisterRequest holds the fields submitted when creating an account
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Country   string `json:"country"`
}

// ProfileUpdate holds the mutable profile fields. An empty Password leaves the
// credential untouched.
type ProfileUpdate struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Country   string `json:"country"`
	Password  string `json:"password"`
}
