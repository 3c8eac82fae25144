package validation

import (
	"strings"
	"testing"
)

func TestValidateRunID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
		errMsg  string
	}{
		{name: "uuid", id: "f736da47-b2ca-4f86-bb32-a1bbe582e464"},
		{name: "empty", id: "", wantErr: true, errMsg: "cannot be empty"},
		{name: "forward slash", id: "run/1", wantErr: true, errMsg: "contains path separators"},
		{name: "backslash", id: "run\\1", wantErr: true, errMsg: "contains path separators"},
		{name: "traversal", id: "../../etc/passwd", wantErr: true, errMsg: "contains path separators"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRunID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ValidateRunID(%q) error = %q, want substring %q", tt.id, err, tt.errMsg)
			}
		})
	}
}

func TestValidateToolUseID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"", false},
		{"toolu_01ABC", false},
		{"call-123", false},
		{"a b", true},
		{"../x", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if err := ValidateToolUseID(tt.id); (err != nil) != tt.wantErr {
				t.Errorf("ValidateToolUseID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCommitSHA(t *testing.T) {
	tests := []struct {
		sha     string
		wantErr bool
	}{
		{"abc1234", false},
		{"0123456789abcdef0123456789abcdef01234567", false},
		{"ABC1234", true},
		{"abc", true},
		{"HEAD", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.sha, func(t *testing.T) {
			if err := ValidateCommitSHA(tt.sha); (err != nil) != tt.wantErr {
				t.Errorf("ValidateCommitSHA(%q) error = %v, wantErr %v", tt.sha, err, tt.wantErr)
			}
		})
	}
}
