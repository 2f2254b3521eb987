package validation

import "testing"

func TestPhone(t *testing.T) {
	// Local form is converted to canonical
	got, errs := Phone("0501234567")
	if len(errs) != 0 {
		t.Fatalf("local phone: unexpected errors: %v", errs)
	}
	if got != "+972501234567" {
		t.Errorf("local phone: expected +972501234567, got %q", got)
	}

	// Canonical form passes through unchanged
	got, errs = Phone("+972501234567")
	if len(errs) != 0 {
		t.Fatalf("canonical phone: unexpected errors: %v", errs)
	}
	if got != "+972501234567" {
		t.Errorf("canonical phone: expected passthrough, got %q", got)
	}

	// Separators are tolerated
	got, errs = Phone("050-123 4567")
	if len(errs) != 0 || got != "+972501234567" {
		t.Errorf("separated phone: got %q errs=%v", got, errs)
	}

	// Too short
	if _, errs = Phone("050123"); len(errs) == 0 {
		t.Error("short phone: expected errors, got none")
	}

	// Wrong prefix
	if _, errs = Phone("0612345678"); len(errs) == 0 {
		t.Error("landline prefix: expected errors, got none")
	}

	// Empty
	if _, errs = Phone(""); len(errs) == 0 {
		t.Error("empty phone: expected errors, got none")
	}
}

func TestPrice(t *testing.T) {
	n, errs := Price("2500")
	if len(errs) != 0 || n != 2500 {
		t.Errorf("price 2500: got %v errs=%v", n, errs)
	}

	n, errs = Price("10")
	if len(errs) != 0 || n != 10 {
		t.Errorf("percent 10: got %v errs=%v", n, errs)
	}

	// Currency symbol and thousands separator are stripped
	n, errs = Price("₪1,299.90")
	if len(errs) != 0 || n != 1299.90 {
		t.Errorf("formatted price: got %v errs=%v", n, errs)
	}

	if _, errs = Price("-5"); len(errs) == 0 {
		t.Error("negative price: expected errors, got none")
	}
	if _, errs = Price("0"); len(errs) == 0 {
		t.Error("zero price: expected errors, got none")
	}
	if _, errs = Price("abc"); len(errs) == 0 {
		t.Error("non-numeric price: expected errors, got none")
	}
}

func TestName(t *testing.T) {
	got, errs := Name("  דנה ")
	if len(errs) != 0 {
		t.Fatalf("name: unexpected errors: %v", errs)
	}
	if got != "דנה" {
		t.Errorf("name: expected trimmed form, got %q", got)
	}

	if _, errs = Name("   "); len(errs) == 0 {
		t.Error("blank name: expected errors, got none")
	}
}

func TestConsent(t *testing.T) {
	if errs := Consent(true); len(errs) != 0 {
		t.Errorf("consent true: unexpected errors: %v", errs)
	}
	if errs := Consent(false); len(errs) == 0 {
		t.Error("consent false: expected errors, got none")
	}
}

func TestNonEmpty(t *testing.T) {
	got, errs := NonEmpty("category", " headphones ")
	if len(errs) != 0 || got != "headphones" {
		t.Errorf("non-empty: got %q errs=%v", got, errs)
	}
	if _, errs = NonEmpty("category", ""); len(errs) == 0 {
		t.Error("empty: expected errors, got none")
	}
}
