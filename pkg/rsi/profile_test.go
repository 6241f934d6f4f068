package rsi

import "testing"

func TestBlockedMatchesCaseInsensitive(t *testing.T) {
	orgs := []Org{{Name: "Ghost Net", Tag: "gnet", Rank: "Member"}}

	if !Blocked(orgs, []string{"GNET"}) {
		t.Fatal("expected lowercase org tag to match uppercase denylist entry")
	}
}

func TestBlockedEmptyDenylist(t *testing.T) {
	orgs := []Org{{Name: "Anything", Tag: "ANY", Rank: "Founder"}}

	if Blocked(orgs, nil) {
		t.Fatal("empty denylist must never block")
	}
	if Blocked(orgs, []string{}) {
		t.Fatal("empty denylist must never block")
	}
}

func TestBlockedNoMatch(t *testing.T) {
	orgs := []Org{{Name: "Xylo", Tag: "XYZ", Rank: "Member"}}

	if Blocked(orgs, []string{"ABC"}) {
		t.Fatal("unrelated tags must not block")
	}
}

func TestBlockedNoOrgs(t *testing.T) {
	if Blocked(nil, []string{"ABC"}) {
		t.Fatal("member with no orgs must not block")
	}
}
