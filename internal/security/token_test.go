package security

import (
	"testing"
	"time"
)

const testSecret = "test_secret_key_minimum_32_chars"

func TestGenerateServiceToken(t *testing.T) {
	tests := []struct {
		name    string
		service string
		ttl     time.Duration
	}{
		{
			name:    "Map-ban service",
			service: "mapban",
			ttl:     time.Hour,
		},
		{
			name:    "Default TTL",
			service: "mapban",
			ttl:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateServiceToken(tt.service, testSecret, tt.ttl)
			if err != nil {
				t.Fatalf("GenerateServiceToken() error = %v", err)
			}

			if token == "" {
				t.Error("GenerateServiceToken() returned empty token")
			}

			claims, err := ValidateServiceToken(token, testSecret)
			if err != nil {
				t.Fatalf("ValidateServiceToken() error = %v", err)
			}

			if claims.Service != tt.service {
				t.Errorf("Service = %q, want %q", claims.Service, tt.service)
			}
		})
	}
}

func TestGenerateServiceToken_EmptyService(t *testing.T) {
	if _, err := GenerateServiceToken("", testSecret, time.Hour); err == nil {
		t.Error("GenerateServiceToken() expected error for empty service, got nil")
	}
}

func TestValidateServiceToken_InvalidToken(t *testing.T) {
	otherSecretToken, err := GenerateServiceToken("mapban", "another_secret_key_minimum_32_chr", time.Hour)
	if err != nil {
		t.Fatalf("GenerateServiceToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "Empty token",
			token: "",
		},
		{
			name:  "Invalid format",
			token: "invalid.token.here",
		},
		{
			name:  "Random string",
			token: "randomstring",
		},
		{
			name:  "Wrong secret",
			token: otherSecretToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateServiceToken(tt.token, testSecret)
			if err == nil {
				t.Error("ValidateServiceToken() expected error for invalid token, got nil")
			}
		})
	}
}

func TestValidateServiceToken_ExpiredToken(t *testing.T) {
	token, err := GenerateServiceToken("mapban", testSecret, time.Nanosecond)
	if err != nil {
		t.Fatalf("GenerateServiceToken() error = %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := ValidateServiceToken(token, testSecret); err == nil {
		t.Error("ValidateServiceToken() expected error for expired token, got nil")
	}
}

func TestServiceTokenRoundTrip(t *testing.T) {
	token, err := GenerateServiceToken("mapban", testSecret, 24*time.Hour)
	if err != nil {
		t.Fatalf("GenerateServiceToken() error = %v", err)
	}

	claims, err := ValidateServiceToken(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateServiceToken() error = %v", err)
	}

	if claims.Subject != "mapban" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "mapban")
	}

	if claims.ExpiresAt.Time.Before(time.Now()) {
		t.Error("Token already expired")
	}

	expectedExpiry := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt.Time.After(expectedExpiry.Add(time.Minute)) {
		t.Error("Token expiration is too far in the future")
	}
}
