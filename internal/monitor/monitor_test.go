package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewContractMonitor(t *testing.T) {
	testSchemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title": "TestSchema",
		"type": "object",
		"properties": { "name": { "type": "string" } },
		"required": ["name"]
	}`
	schemaDir := t.TempDir()
	schemaFile := filepath.Join(schemaDir, "test_schema.json")
	if err := os.WriteFile(schemaFile, []byte(testSchemaContent), 0644); err != nil {
		t.Fatalf("Failed to write test schema file: %v", err)
	}

	t.Run("SuccessfulLoad", func(t *testing.T) {
		cm, err := NewContractMonitor(schemaFile)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cm == nil || cm.schema == nil {
			t.Fatal("Expected compiled schema, got nil")
		}
		valid, _, err := cm.Validate([]byte(`{"name": "x"}`))
		if err != nil || !valid {
			t.Errorf("Expected valid document, got valid=%v err=%v", valid, err)
		}
	})

	t.Run("SchemaFileNotFound", func(t *testing.T) {
		_, err := NewContractMonitor("non_existent_schema.json")
		if err == nil {
			t.Fatal("Expected error for non-existent schema, got nil")
		}
		if !strings.Contains(err.Error(), "error loading or compiling schema") {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("InvalidSchemaSyntax", func(t *testing.T) {
		invalidSchemaFile := filepath.Join(schemaDir, "invalid_schema.json")
		if err := os.WriteFile(invalidSchemaFile, []byte("{invalid_json"), 0644); err != nil {
			t.Fatalf("Failed to write invalid test schema file: %v", err)
		}
		if _, err := NewContractMonitor(invalidSchemaFile); err == nil {
			t.Fatal("Expected error for invalid schema syntax, got nil")
		}
	})

	t.Run("InvalidInlineSchema", func(t *testing.T) {
		if _, err := NewContractMonitorFromString(`{"type": 12}`); err == nil {
			t.Fatal("Expected error for invalid inline schema, got nil")
		}
	})
}

func TestPaymentRequestMonitor_Validate(t *testing.T) {
	cm, err := NewPaymentRequestMonitor()
	if err != nil {
		t.Fatalf("Failed to compile embedded payment request schema: %v", err)
	}

	tests := []struct {
		name          string
		payload       string
		expectValid   bool
		expectErrors  bool
		errorContains []string
	}{
		{
			name:        "MinimalPayload",
			payload:     `{"amount": 1000}`,
			expectValid: true,
		},
		{
			name: "FullPayload",
			payload: `{"amount": 1000, "currency_code": "978", "order_id": "a1b2c3", "transaction_id": "123456",
				"customer_email": "jane@example.com", "normal_return_url": "https://shop.example.com/ok",
				"language": "fr", "capture_day": 0, "capture_mode": "AUTHOR_CAPTURE", "caddie": "cart 42"}`,
			expectValid: true,
		},
		{
			name:          "MissingAmount",
			payload:       `{"currency_code": "978"}`,
			expectErrors:  true,
			errorContains: []string{"(root): amount is required"},
		},
		{
			name:          "ZeroAmount",
			payload:       `{"amount": 0}`,
			expectErrors:  true,
			errorContains: []string{"amount", "greater than or equal to 1"},
		},
		{
			name:          "FractionalAmount",
			payload:       `{"amount": 12.5}`,
			expectErrors:  true,
			errorContains: []string{"amount", "Invalid type. Expected: integer"},
		},
		{
			name:          "AlphaCurrency",
			payload:       `{"amount": 100, "currency_code": "EUR"}`,
			expectErrors:  true,
			errorContains: []string{"currency_code"},
		},
		{
			name:          "BadEmail",
			payload:       `{"amount": 100, "customer_email": "not-an-email"}`,
			expectErrors:  true,
			errorContains: []string{"customer_email", "Does not match format 'email'"},
		},
		{
			name:          "UnknownCaptureMode",
			payload:       `{"amount": 100, "capture_mode": "LATER"}`,
			expectErrors:  true,
			errorContains: []string{"capture_mode"},
		},
		{
			name:          "AdditionalProperty",
			payload:       `{"amount": 100, "city": "Paris"}`,
			expectErrors:  true,
			errorContains: []string{"Additional property city is not allowed"},
		},
		{
			name:         "MalformedJSON",
			payload:      `{"amount": 100,`,
			expectErrors: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, validationErrs, funcErr := cm.Validate([]byte(tt.payload))

			if tt.expectErrors {
				if funcErr == nil && len(validationErrs) == 0 {
					t.Errorf("Expected errors, but got none")
				}
			} else {
				if funcErr != nil {
					t.Errorf("Expected no functional error, got %v", funcErr)
				}
				if len(validationErrs) > 0 {
					t.Errorf("Expected no validation errors, got %v", validationErrs)
				}
			}

			if valid != tt.expectValid {
				t.Errorf("Expected valid=%v, got valid=%v. ValidationErrors: %v, FuncErr: %v", tt.expectValid, valid, validationErrs, funcErr)
			}

			combinedErrors := strings.Join(validationErrs, "; ")
			for _, ec := range tt.errorContains {
				if !strings.Contains(combinedErrors, ec) {
					t.Errorf("Expected errors to contain '%s', but got: %s", ec, combinedErrors)
				}
			}
		})
	}
}

func TestFormatErrors(t *testing.T) {
	tests := []struct {
		name           string
		errors         []string
		expectedOutput string
	}{
		{
			name:           "NoErrors",
			errors:         []string{},
			expectedOutput: "",
		},
		{
			name:           "SingleError",
			errors:         []string{"(root): amount is required"},
			expectedOutput: "Validation errors: (root): amount is required",
		},
		{
			name:           "MultipleErrors",
			errors:         []string{"Error 1", "Error 2"},
			expectedOutput: "Validation errors: Error 1; Error 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := FormatErrors(tt.errors)
			if output != tt.expectedOutput {
				t.Errorf("Expected '%s', got '%s'", tt.expectedOutput, output)
			}
		})
	}
}
