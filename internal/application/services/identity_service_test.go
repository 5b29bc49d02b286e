package services

import (
	"errors"
	"testing"
)

func TestResolveTokenDeterministic(t *testing.T) {
	f := newFixture(t)

	first, err := f.identity.Resolve("abc", nil, nil, nil)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := f.identity.Resolve("abc", nil, nil, nil)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	if first.ServerToken != second.ServerToken {
		t.Errorf("tokens differ: %q vs %q", first.ServerToken, second.ServerToken)
	}
	if first.ServerToken == "" {
		t.Error("token is empty")
	}
	if first.ServerToken == "abc" {
		t.Error("token must not echo the raw hash")
	}
}

func TestResolveCountsVisitsExactly(t *testing.T) {
	f := newFixture(t)

	var last int
	for i := 1; i <= 5; i++ {
		identity, err := f.identity.Resolve("abc", nil, nil, nil)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if identity.Visits != i {
			t.Fatalf("after %d resolutions visits = %d", i, identity.Visits)
		}
		last = identity.Visits
	}
	if last != 5 {
		t.Fatalf("final visits = %d, want 5", last)
	}
}

func TestResolveMergesVisitsIntoStats(t *testing.T) {
	f := newFixture(t)

	var visitorID string
	for i := 0; i < 5; i++ {
		identity, err := f.identity.Resolve("abc", nil, nil, nil)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		visitorID = identity.ID
	}

	stats, err := f.stats.FindByVisitorID(visitorID)
	if err != nil {
		t.Fatalf("finding stats: %v", err)
	}
	if stats == nil {
		t.Fatal("stats row missing after resolution")
	}
	if stats.Visits != 5 {
		t.Errorf("stats visits = %d, want 5", stats.Visits)
	}
}

func TestResolveRejectsEmptyHash(t *testing.T) {
	f := newFixture(t)

	_, err := f.identity.Resolve("", nil, nil, nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestLookupByHashAndToken(t *testing.T) {
	f := newFixture(t)

	created, err := f.identity.Resolve("abc", nil, nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	byHash, err := f.identity.Lookup("abc", "")
	if err != nil {
		t.Fatalf("lookup by hash: %v", err)
	}
	if byHash == nil || byHash.ID != created.ID {
		t.Error("hash lookup did not return the created identity")
	}

	byToken, err := f.identity.Lookup("", created.ServerToken)
	if err != nil {
		t.Fatalf("lookup by token: %v", err)
	}
	if byToken == nil || byToken.ID != created.ID {
		t.Error("token lookup did not return the created identity")
	}

	missing, err := f.identity.Lookup("nope", "")
	if err != nil {
		t.Fatalf("lookup of unknown hash: %v", err)
	}
	if missing != nil {
		t.Error("unknown hash should return nil, nil")
	}

	if _, err := f.identity.Lookup("", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty lookup err = %v, want ErrInvalidRequest", err)
	}
}
