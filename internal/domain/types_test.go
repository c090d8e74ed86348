package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
)

func TestParseTableID(t *testing.T) {
	for i := domain.MinTableID; i <= domain.MaxTableID; i++ {
		s := domain.TableID(i).String()
		id, err := domain.ParseTableID(s)
		if err != nil {
			t.Fatalf("ParseTableID(%q) failed: %v", s, err)
		}
		if uint32(id) != uint32(i) {
			t.Fatalf("expected %d, got %d", i, id)
		}
	}

	for _, s := range []string{"0", "101", "-1", "abc", "", "1.5", " 1", "4294967296"} {
		if _, err := domain.ParseTableID(s); err == nil {
			t.Errorf("expected error for table id %q", s)
		}
	}
}

func TestParseTableID_ErrorMessage(t *testing.T) {
	_, err := domain.ParseTableID("abc")
	if err == nil || err.Error() != "abc is not a valid table id." {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseItemID(t *testing.T) {
	id, err := domain.ParseItemID("42")
	if err != nil {
		t.Fatalf("ParseItemID failed: %v", err)
	}
	if id != 42 || id.String() != "42" {
		t.Fatalf("unexpected id: %v", id)
	}

	for _, s := range []string{"0", "-3", "x", "", "4294967296"} {
		if _, err := domain.ParseItemID(s); err == nil {
			t.Errorf("expected error for item id %q", s)
		}
	}
}

// Идентификаторы принимаются только в виде цифр, знак "+" не допускается.
func TestParseIDs_RejectExplicitPlusSign(t *testing.T) {
	if _, err := domain.ParseTableID("+5"); err == nil {
		t.Error("expected error for table id \"+5\"")
	}
	if _, err := domain.ParseItemID("+5"); err == nil {
		t.Error("expected error for item id \"+5\"")
	}
	if _, err := domain.ParseItemQuantity("+5"); err == nil {
		t.Error("expected error for quantity \"+5\"")
	}
	if _, err := domain.ParseItemVersion("+5"); err == nil {
		t.Error("expected error for version \"+5\"")
	}

	id, err := domain.ParseItemID("05")
	if err != nil || id != 5 {
		t.Fatalf("ParseItemID(\"05\") = %v, %v", id, err)
	}
}

func TestParseItemName(t *testing.T) {
	valid := []string{
		"Hamburger",
		"Some pizza",
		strings.Repeat("ё", 100),
		strings.Repeat("e\u0301", 100), // 100 графем из 200 рун
	}
	for _, s := range valid {
		if _, err := domain.ParseItemName(s); err != nil {
			t.Errorf("expected %q to be valid: %v", s, err)
		}
	}

	invalid := []string{
		"",
		" ",
		"\t\n",
		strings.Repeat("a", 101),
		strings.Repeat("a", 257),
	}
	for _, c := range []string{"/", "(", ")", `"`, "<", ">", `\`, "{", "}"} {
		invalid = append(invalid, "pizza"+c)
	}
	for _, s := range invalid {
		if _, err := domain.ParseItemName(s); err == nil {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

func TestParseItemNotes(t *testing.T) {
	for _, s := range []string{"", "Some notes", strings.Repeat("A", 256)} {
		notes, err := domain.ParseItemNotes(s)
		if err != nil {
			t.Errorf("expected %q to be valid: %v", s, err)
		}
		if notes.String() != s {
			t.Errorf("expected notes %q, got %q", s, notes.String())
		}
	}

	for _, s := range []string{strings.Repeat("A", 257), "no {braces}", "a/b"} {
		if _, err := domain.ParseItemNotes(s); err == nil {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

func TestParseItemQuantityAndVersion(t *testing.T) {
	q, err := domain.ParseItemQuantity("0")
	if err != nil || q != 0 {
		t.Fatalf("zero quantity must be structurally valid: %v", err)
	}
	if _, err := domain.ParseItemQuantity("-1"); err == nil {
		t.Fatal("negative quantity must be rejected")
	}

	v, err := domain.ParseItemVersion("7")
	if err != nil {
		t.Fatalf("ParseItemVersion failed: %v", err)
	}
	if v.Next() != 8 {
		t.Fatalf("expected next version 8, got %d", v.Next())
	}
	if !v.Less(v.Next()) || v.Next().Less(v) {
		t.Fatal("unexpected version ordering")
	}
	if _, err := domain.ParseItemVersion("v1"); err == nil {
		t.Fatal("expected error for non-numeric version")
	}
}

func TestItemID_JSONKeys(t *testing.T) {
	var m map[domain.ItemID]string
	if err := json.Unmarshal([]byte(`{"1":"a","10":"b"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m[1] != "a" || m[10] != "b" {
		t.Fatalf("unexpected map: %v", m)
	}

	if err := json.Unmarshal([]byte(`{"0":"a"}`), &m); err == nil {
		t.Fatal("expected error for zero item id key")
	}

	var ids []domain.ItemID
	if err := json.Unmarshal([]byte(`[1, 2, 3]`), &ids); err != nil {
		t.Fatalf("unmarshal ids: %v", err)
	}
	if err := json.Unmarshal([]byte(`[0, 2]`), &ids); err == nil {
		t.Fatal("expected error for zero item id")
	}
}
