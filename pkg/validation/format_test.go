package validation

import "testing"

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{
			name:      "Valid pretty format",
			format:    "pretty",
			expectErr: false,
		},
		{
			name:      "Valid csv format",
			format:    "csv",
			expectErr: false,
		},
		{
			name:      "JSON is served over HTTP only",
			format:    "json",
			expectErr: true,
		},
		{
			name:      "Empty format",
			format:    "",
			expectErr: true,
		},
		{
			name:      "Case sensitive",
			format:    "CSV",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)
			if tt.expectErr && err == nil {
				t.Errorf("ValidateOutputFormat(%s) expected error but got none", tt.format)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("ValidateOutputFormat(%s) unexpected error = %v", tt.format, err)
			}
		})
	}
}

func TestValidateLogFormat(t *testing.T) {
	tests := []struct {
		format    string
		expectErr bool
	}{
		{"", false},
		{"json", false},
		{"console", false},
		{"logfmt", true},
	}

	for _, tt := range tests {
		err := ValidateLogFormat(tt.format)
		if (err != nil) != tt.expectErr {
			t.Errorf("ValidateLogFormat(%q) error = %v, expectErr %v", tt.format, err, tt.expectErr)
		}
	}
}
