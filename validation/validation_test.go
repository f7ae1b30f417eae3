package validation

import (
	"strings"
	"testing"

	apperrors "github.com/kbukum/diconfig/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("name", "mailer")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("name", "")
	if !v2.HasErrors() {
		t.Error("expected error for empty required field")
	}

	v3 := New()
	v3.Required("name", "   ")
	if !v3.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorPattern(t *testing.T) {
	v := New()
	v.Pattern("code", "ABC123", `^[A-Z0-9]+$`)
	if v.HasErrors() {
		t.Error("expected no error for matching pattern")
	}

	v2 := New()
	v2.Pattern("code", "abc", `^[A-Z]+$`)
	if !v2.HasErrors() {
		t.Error("expected error for non-matching pattern")
	}

	// Empty value should be skipped
	v3 := New()
	v3.Pattern("code", "", `^[A-Z]+$`)
	if v3.HasErrors() {
		t.Error("expected no error for empty value with pattern")
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New()
	v.OneOf("format", "json", []string{"json", "console"})
	if v.HasErrors() {
		t.Error("expected no error for valid oneOf value")
	}

	v2 := New()
	v2.OneOf("format", "xml", []string{"json", "console"})
	if !v2.HasErrors() {
		t.Error("expected error for invalid oneOf value")
	}

	// Empty should be skipped
	v3 := New()
	v3.OneOf("format", "", []string{"json"})
	if v3.HasErrors() {
		t.Error("expected no error for empty oneOf value")
	}
}

func TestValidatorCustom(t *testing.T) {
	v := New()
	v.Custom(true, "field", "should pass")
	if v.HasErrors() {
		t.Error("expected no error for true condition")
	}

	v2 := New()
	v2.Custom(false, "field", "custom error")
	if !v2.HasErrors() {
		t.Error("expected error for false condition")
	}
	if v2.Errors()[0].Message != "custom error" {
		t.Errorf("expected 'custom error', got %q", v2.Errors()[0].Message)
	}
}

func TestValidatorAddErrorf(t *testing.T) {
	v := New()
	v.AddErrorf("delegators.mailer", "service %q is not declared", "mailer")
	if got := v.Errors()[0].String(); got != `delegators.mailer: service "mailer" is not declared` {
		t.Errorf("unexpected error text %q", got)
	}
}

func TestValidatorValidate(t *testing.T) {
	v := New()
	v.Required("name", "mailer")
	if appErr := v.Validate(); appErr != nil {
		t.Error("expected nil for valid input")
	}
	if err := v.Err(); err != nil {
		t.Errorf("expected nil error interface, got %v", err)
	}

	v2 := New()
	v2.Required("name", "")
	v2.Required("class", "")
	appErr2 := v2.Validate()
	if appErr2 == nil {
		t.Fatal("expected error")
	}
	if appErr2.Code != apperrors.ErrCodeInvalidConfiguration {
		t.Errorf("expected INVALID_CONFIGURATION, got %s", appErr2.Code)
	}
	fields, ok := appErr2.Details[DetailFields].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Fatalf("expected 2 field errors in details, got %v", appErr2.Details)
	}
	if !strings.Contains(appErr2.Message, "name") || !strings.Contains(appErr2.Message, "class") {
		t.Errorf("expected both fields in message, got %q", appErr2.Message)
	}
	if !apperrors.IsInvalidConfiguration(v2.Err()) {
		t.Error("expected Err to report INVALID_CONFIGURATION")
	}
}

func TestValidatorChaining(t *testing.T) {
	v := New()
	result := v.Required("name", "mailer").Pattern("name", "mailer", `^[a-z]+$`).OneOf("format", "json", []string{"json"})
	if result != v {
		t.Error("expected chaining to return same validator")
	}
	if v.HasErrors() {
		t.Error("expected no errors for valid chained validation")
	}
}

func TestStructValidateValid(t *testing.T) {
	type Document struct {
		Version int    `yaml:"version" validate:"required,eq=1"`
		Name    string `yaml:"name" validate:"required"`
	}

	if err := Validate(Document{Version: 1, Name: "app"}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	type Document struct {
		Version int               `yaml:"version" validate:"required,eq=1"`
		Format  string            `mapstructure:"format" validate:"omitempty,oneof=json console"`
		Classes map[string]string `yaml:"classes" validate:"dive,required"`
	}

	err := Validate(Document{Version: 2, Format: "xml", Classes: map[string]string{"mailer": ""}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !apperrors.IsInvalidConfiguration(err) {
		t.Fatalf("expected INVALID_CONFIGURATION, got %v", err)
	}

	errStr := err.Error()
	for _, want := range []string{"version: must equal 1", "format: must be one of: json console", "classes[mailer]: is required"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("expected error to mention %q, got %q", want, errStr)
		}
	}
}

func TestStructValidateNotAStruct(t *testing.T) {
	err := Validate("not a struct")
	if !apperrors.IsInvalidConfiguration(err) {
		t.Fatalf("expected INVALID_CONFIGURATION, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"ServiceName": "service_name",
		"File":        "file",
		"name":        "name",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequiredFunc(t *testing.T) {
	if err := Required("name", "value"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := Required("name", ""); err == nil {
		t.Error("expected error for empty required field")
	}
}
