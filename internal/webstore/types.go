package webstore

import (
	"encoding/json"
	"strconv"
)

// RawRow is one positional, heterogeneous row as decoded from the endpoint's
// envelope. Field meaning is defined solely by index; no length is
// guaranteed, and indices beyond the row's length are treated as absent.
type RawRow []any

// InstallCount holds the reported install count, which the endpoint
// sometimes supplies as an exact integer and sometimes as a display string.
// The zero value means absent.
type InstallCount struct {
	raw     string
	count   int64
	numeric bool
	present bool
}

// NewInstallCount builds an InstallCount from the raw endpoint value,
// keeping it as an integer when it is purely digits.
func NewInstallCount(raw string) InstallCount {
	if raw == "" {
		return InstallCount{}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return InstallCount{raw: raw, count: n, numeric: true, present: true}
	}
	return InstallCount{raw: raw, present: true}
}

// Present reports whether the endpoint supplied any value.
func (c InstallCount) Present() bool { return c.present }

// Count returns the numeric value and whether the source was purely digits.
func (c InstallCount) Count() (int64, bool) { return c.count, c.numeric }

// String returns the raw value as received, or "" when absent.
func (c InstallCount) String() string { return c.raw }

// MarshalJSON emits null when absent, a JSON number when the source was
// purely digits, and the raw string otherwise.
func (c InstallCount) MarshalJSON() ([]byte, error) {
	switch {
	case !c.present:
		return []byte("null"), nil
	case c.numeric:
		return []byte(strconv.FormatInt(c.count, 10)), nil
	default:
		return json.Marshal(c.raw)
	}
}

// UnmarshalJSON accepts null, a JSON number, or a string, inverting
// MarshalJSON so exported artifacts can be read back.
func (c *InstallCount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = InstallCount{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*c = NewInstallCount(raw)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = NewInstallCount(n.String())
	return nil
}

// Extension is the typed entity decoded from one raw row. Only ID and Name
// are mandatory; every other field degrades to its zero value or nil.
type Extension struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	DisplayName      string  `json:"display_name"`
	ShortDescription string  `json:"short_description"`
	Category         *string `json:"category"`
	IconLink         string  `json:"icon_link"`

	Downloads   InstallCount `json:"downloads"`
	Rating      *float64     `json:"rating"`
	RatingCount *int64       `json:"rating_count"`

	Website    *string `json:"website"`
	GoodRecord bool    `json:"good_record"`
	Featured   bool    `json:"featured"`

	CreateDate          string `json:"create_date"`
	Version             string `json:"version"`
	HostWidePermissions bool   `json:"host_wide_permissions"`
}

// State labels the orchestrator's position in its page loop.
type State string

// Crawl states. Done and Aborted are terminal.
const (
	StateInit         State = "INIT"
	StateFetchingPage State = "FETCHING_PAGE"
	StateDone         State = "DONE"
	StateAborted      State = "ABORTED"
)

// PaginationState tracks the continuation token across the page loop. It is
// created at crawl start, mutated once per page, and discarded at crawl end.
type PaginationState struct {
	Token string
	Pages int
	Limit int
}

// Result is the ordered accumulation of decoded extensions plus the count of
// pages actually visited and the terminal crawl state. Arrival order is
// preserved and no deduplication is applied.
type Result struct {
	Extensions []Extension
	Pages      int
	State      State
}
