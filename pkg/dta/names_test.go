package dta

import (
	"strings"
	"testing"
)

func TestSanitizeNamesLegal(t *testing.T) {
	names := []string{"age", "wage_2", "_x"}
	out, renames, err := sanitizeNames(names)
	if err != nil {
		t.Fatal(err)
	}
	if len(renames) != 0 {
		t.Errorf("unexpected renames: %v", renames)
	}
	for i, n := range out {
		if n != names[i] {
			t.Errorf("out[%d] = %q, want %q", i, n, names[i])
		}
	}
}

func TestSanitizeNamesIllegalBytes(t *testing.T) {
	out, renames, err := sanitizeNames([]string{"1 a-b"})
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != "_1_a_b" {
		t.Errorf("out[0] = %q, want _1_a_b", out[0])
	}
	if len(renames) != 1 || !strings.Contains(renames[0], "1 a-b") {
		t.Errorf("renames = %v", renames)
	}
}

func TestSanitizeNamesReserved(t *testing.T) {
	out, _, err := sanitizeNames([]string{"int", "byte", "NULL"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"_int", "_byte", "_NULL"}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("out[%d] = %q, want %q", i, out[i], w)
		}
	}
}

func TestSanitizeNamesTruncates(t *testing.T) {
	long := strings.Repeat("a", 40)
	out, _, err := sanitizeNames([]string{long})
	if err != nil {
		t.Fatal(err)
	}
	if len(out[0]) != 32 {
		t.Errorf("len(out[0]) = %d, want 32", len(out[0]))
	}
}

func TestSanitizeNamesCollision(t *testing.T) {
	// "a b" rewrites to "a_b", colliding with the existing column.
	out, _, err := sanitizeNames([]string{"a_b", "a b"})
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != "a_b" {
		t.Errorf("out[0] = %q, want a_b", out[0])
	}
	if out[1] == "a_b" {
		t.Error("collision not disambiguated")
	}
	if !strings.HasSuffix(out[1], "a_b") {
		t.Errorf("out[1] = %q, want a counter-prefixed a_b", out[1])
	}
}

func TestSanitizeNamesEmpty(t *testing.T) {
	if _, _, err := sanitizeNames([]string{""}); err == nil {
		t.Fatal("expected error for empty column name")
	}
}
