package rsi

import "strings"

// Org is one organization affiliation on an RSI citizen profile.
type Org struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
	Rank string `json:"rank"`
}

// Profile is the citizen profile returned by the UCI provider when a game
// account is linked.
type Profile struct {
	Handle         string `json:"handle"`
	CitizenRecord  string `json:"citizen_record"`
	Orgs           []Org  `json:"orgs"`
	AccountCreated string `json:"account_created"`
}

// CitizenURL points at the public RSI citizen page for a handle.
func CitizenURL(handle string) string {
	return "https://robertsspaceindustries.com/citizens/" + handle
}

// Blocked reports whether any org affiliation tag appears on the denylist.
// Comparison is case-insensitive; an empty denylist never blocks.
func Blocked(orgs []Org, denylist []string) bool {
	if len(denylist) == 0 {
		return false
	}

	blocked := make(map[string]struct{}, len(denylist))
	for _, tag := range denylist {
		blocked[strings.ToLower(tag)] = struct{}{}
	}

	for _, org := range orgs {
		if _, ok := blocked[strings.ToLower(org.Tag)]; ok {
			return true
		}
	}
	return false
}
