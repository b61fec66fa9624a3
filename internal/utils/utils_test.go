package utils

import (
	"regexp"
	"testing"
)

func TestNewDeploymentIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^deploy-[0-9]+-[a-z0-9]+$`)
	id := NewDeploymentID()
	if !pattern.MatchString(id) {
		t.Fatalf("deployment id %q does not match expected token format", id)
	}
}

func TestNewDeploymentIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewDeploymentID()
		if seen[id] {
			t.Fatalf("duplicate deployment id %q", id)
		}
		seen[id] = true
	}
}

func TestIsOwnerAddress(t *testing.T) {
	valid := []string{
		"0x1234567890abcdef1234567890abcdef12345678",
		"0xABCDEF1234567890abcdef1234567890ABCDEF12",
	}
	for _, addr := range valid {
		if !IsOwnerAddress(addr) {
			t.Fatalf("expected %q to be valid", addr)
		}
	}

	invalid := []string{
		"",
		"not-an-address",
		"0x123",
		"0x1234567890abcdef1234567890abcdef1234567890", // too long
		"1234567890abcdef1234567890abcdef12345678",     // no prefix
		"0x1234567890abcdef1234567890abcdef1234567g",   // bad hex
	}
	for _, addr := range invalid {
		if IsOwnerAddress(addr) {
			t.Fatalf("expected %q to be invalid", addr)
		}
	}
}
