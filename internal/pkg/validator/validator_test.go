package validator

import "testing"

type sample struct {
	Clues []string `json:"clues" validate:"required,min=1,dive,max=5"`
	Tier  string   `json:"tier" validate:"omitempty,tier"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	errs := Validate(sample{})
	if errs["clues"] != "This field is required" {
		t.Fatalf("unexpected errors %v", errs)
	}
}

func TestValidateTier(t *testing.T) {
	if errs := Validate(sample{Clues: []string{"a"}, Tier: "vague"}); errs != nil {
		t.Fatalf("expected valid, got %v", errs)
	}
	errs := Validate(sample{Clues: []string{"a"}, Tier: "legendary"})
	if errs["tier"] == "" {
		t.Fatalf("expected tier error, got %v", errs)
	}
	if err := ValidateVar("precise", "tier"); err != nil {
		t.Fatalf("expected precise to be valid: %v", err)
	}
}
