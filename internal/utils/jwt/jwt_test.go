package jwt

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	token, err := CreateToken("user-123", false, "secret")
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	userID, isAdmin, err := ExtractClaims(token, "secret")
	if err != nil {
		t.Fatalf("ExtractClaims failed: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("Expected user-123, got %q", userID)
	}
	if isAdmin {
		t.Fatal("Expected admin flag to be false")
	}
}

func TestTokenCarriesAdminFlag(t *testing.T) {
	token, err := CreateToken("admin-1", true, "secret")
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	_, isAdmin, err := ExtractClaims(token, "secret")
	if err != nil {
		t.Fatalf("ExtractClaims failed: %v", err)
	}
	if !isAdmin {
		t.Fatal("Expected admin flag to be true")
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := CreateToken("user-123", false, "secret")
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	if _, err := ExtractUserIDFromToken(token, "other-secret"); err == nil {
		t.Fatal("Expected validation to fail with the wrong secret")
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	if _, err := ExtractUserIDFromToken("not-a-token", "secret"); err == nil {
		t.Fatal("Expected validation to fail for a malformed token")
	}
}
