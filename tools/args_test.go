package tools

import (
	"errors"
	"testing"
)

var bmiMeta = NewBMITool().Metadata()

func TestBindArgsCoercesNumbers(t *testing.T) {
	args, err := bindArgs(bmiMeta, []byte(`{"weight_kg": "70kg", "height_cm": 175}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.Float("weight_kg") != 70 || args.Float("height_cm") != 175 {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestBindArgsMissingRequired(t *testing.T) {
	_, err := bindArgs(bmiMeta, []byte(`{"weight_kg": 70}`))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Param != "height_cm" {
		t.Errorf("param = %q, want height_cm", verr.Param)
	}
}

func TestBindArgsRejectsNonNumeric(t *testing.T) {
	if _, err := bindArgs(bmiMeta, []byte(`{"weight_kg": "heavy", "height_cm": 175}`)); err == nil {
		t.Fatal("expected error for non-numeric weight")
	}
}

func TestBindArgsAppliesDefaults(t *testing.T) {
	meta := NewFacilityTool("", 0).Metadata()
	args, err := bindArgs(meta, []byte(`{"location": "Nashik"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.String("facility_type") != "hospital" {
		t.Errorf("facility_type = %q, want hospital", args.String("facility_type"))
	}
}

func TestBindArgsDropsUndeclared(t *testing.T) {
	args, err := bindArgs(NewEmergencyTool().Metadata(), []byte(`{"symptom": "stroke", "extra": 1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := args["extra"]; ok {
		t.Error("undeclared argument should be dropped")
	}
}

func TestBindArgsStringFromNumber(t *testing.T) {
	args, err := bindArgs(NewHealthTipsTool().Metadata(), []byte(`{"topic": 42}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.String("topic") != "42" {
		t.Errorf("topic = %q", args.String("topic"))
	}
}
