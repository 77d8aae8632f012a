package permission

import "testing"

// --- Level ordering tests ---

func TestOrderingIsTotal(t *testing.T) {
	if !(Read.Rank() < Write.Rank() && Write.Rank() < Execute.Rank() && Execute.Rank() < Admin.Rank()) {
		t.Error("expected read < write < execute < admin")
	}
}

func TestHasHigherSatisfiesLower(t *testing.T) {
	if !Has([]Level{Execute}, Read) {
		t.Error("expected execute to satisfy read")
	}
}

func TestHasLowerDoesNotSatisfyHigher(t *testing.T) {
	if Has([]Level{Read}, Execute) {
		t.Error("expected read not to satisfy execute")
	}
}

func TestHasEmptyGrant(t *testing.T) {
	if Has(nil, Read) {
		t.Error("expected empty grant to satisfy nothing")
	}
}

func TestHasUnknownRequired(t *testing.T) {
	if Has([]Level{Admin}, Level("superuser")) {
		t.Error("expected unknown requirement to never be satisfied")
	}
}

func TestHasUnknownGranted(t *testing.T) {
	if Has([]Level{Level("root")}, Read) {
		t.Error("expected unknown granted level to satisfy nothing")
	}
}

func TestHighest(t *testing.T) {
	got := Highest([]Level{Read, Admin, Write})
	if got != Admin {
		t.Errorf("expected admin, got %q", got)
	}
}

func TestHighestEmpty(t *testing.T) {
	if got := Highest(nil); got != "" {
		t.Errorf("expected empty level, got %q", got)
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	l, err := Parse(" EXECUTE ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != Execute {
		t.Errorf("expected execute, got %q", l)
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("owner"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFromStringsDropsInvalid(t *testing.T) {
	got := FromStrings([]string{"read", "bogus", "admin"})
	if len(got) != 2 || got[0] != Read || got[1] != Admin {
		t.Errorf("expected [read admin], got %v", got)
	}
}

// --- Scope tests ---

func TestHasScopeExact(t *testing.T) {
	if !HasScope([]string{"products:read"}, "products:read") {
		t.Error("expected exact match")
	}
}

func TestHasScopeGlobalWildcard(t *testing.T) {
	if !HasScope([]string{"*"}, "orders:write") {
		t.Error("expected global wildcard to cover everything")
	}
}

func TestHasScopePrefixWildcard(t *testing.T) {
	cases := []struct {
		granted  string
		required string
		want     bool
	}{
		{"products:*", "products:read", true},
		{"products:*", "products:search:advanced", true},
		{"products:*", "products", true},
		{"products:*", "orders:read", false},
		{"products:*", "productsx:read", false},
	}
	for _, tc := range cases {
		got := HasScope([]string{tc.granted}, tc.required)
		if got != tc.want {
			t.Errorf("HasScope(%q, %q) = %v, want %v", tc.granted, tc.required, got, tc.want)
		}
	}
}

func TestHasScopeEmptyRequired(t *testing.T) {
	if !HasScope(nil, "") {
		t.Error("expected empty requirement to always pass")
	}
}

func TestHasScopeNoGrant(t *testing.T) {
	if HasScope(nil, "products:read") {
		t.Error("expected no grant to cover nothing")
	}
}
