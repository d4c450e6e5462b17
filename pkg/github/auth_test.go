package github

import (
	"strings"
	"testing"
)

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"classic token", strings.Repeat("a", 40), false},
		{"fine-grained token", "github_pat_" + strings.Repeat("A", 60), false},
		{"empty", "", true},
		{"too short", "ghp_short", true},
		{"too long", strings.Repeat("a", 300), true},
		{"shell metacharacters", strings.Repeat("a", 39) + ";", true},
		{"whitespace", strings.Repeat("a", 39) + " ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateToken(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAppID(t *testing.T) {
	tests := []struct {
		name    string
		appID   string
		wantErr bool
	}{
		{"valid", "123456", false},
		{"not numeric", "abc", true},
		{"zero", "0", true},
		{"negative", "-5", true},
		{"too large", "9999999999", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAppID(tt.appID)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAppID(%q) error = %v, wantErr %v", tt.appID, err, tt.wantErr)
			}
		})
	}
}

func TestGenerateJWT_RejectsGarbageKey(t *testing.T) {
	if _, err := generateJWT("12345", []byte("not a pem block")); err == nil {
		t.Fatal("expected error for non-PEM key material")
	}
}
