package domain

import "time"

// Grant is a funding pool created on behalf of a funder. Its ID is the
// position in the registry's grant list and never changes.
type Grant struct {
	ID           uint64    `json:"id"`
	Funder       Identity  `json:"funder"`
	Amount       uint64    `json:"amount"`
	Info         string    `json:"info"`
	ProjectCount uint64    `json:"project_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Project is an application registered against a grant. ID is unique only
// within the parent grant.
type Project struct {
	ID         uint64    `json:"id"`
	GrantID    uint64    `json:"grant_id"`
	Applicant  Identity  `json:"applicant"`
	Data       string    `json:"data"`
	IsAccepted bool      `json:"is_accepted"`
	Votes      []Vote    `json:"votes"`
	CreatedAt  time.Time `json:"created_at"`
}

type Vote struct {
	Voter   Identity `json:"voter"`
	Message string   `json:"message"`
}

// NewGrant carries the validated arguments of CreateGrant.
type NewGrant struct {
	Funder    Identity
	Amount    uint64
	Info      string
	CreatedAt time.Time
}

// NewProject carries the validated arguments of RegisterApplication.
type NewProject struct {
	Applicant Identity
	Data      string
	CreatedAt time.Time
}

// Page bounds a listing. Limit is clamped by ClampPage.
type Page struct {
	Offset uint64
	Limit  uint64
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

func ClampPage(p Page) Page {
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Window returns the [start, end) slice bounds of p over a collection of n items.
func (p Page) Window(n uint64) (uint64, uint64) {
	if p.Offset >= n {
		return n, n
	}
	end := p.Offset + p.Limit
	if end > n || end < p.Offset {
		end = n
	}
	return p.Offset, end
}
