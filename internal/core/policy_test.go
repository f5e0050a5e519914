package core

import "testing"

func TestShouldGrantAdmin(t *testing.T) {
	policy := AdminPolicy{BootstrapEmails: []string{"operator@mukha.dev"}}

	tests := []struct {
		name          string
		email         string
		existingUsers int64
		want          bool
	}{
		{"first user ever", "anyone@x.com", 0, true},
		{"second user", "anyone@x.com", 1, false},
		{"bootstrap email", "operator@mukha.dev", 5, true},
		{"bootstrap email case-insensitive", "Operator@Mukha.dev", 5, true},
		{"first user who is also bootstrap", "operator@mukha.dev", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldGrantAdmin(tt.email, tt.existingUsers); got != tt.want {
				t.Errorf("ShouldGrantAdmin(%q, %d) = %v, want %v", tt.email, tt.existingUsers, got, tt.want)
			}
		})
	}
}

func TestIsRestricted(t *testing.T) {
	policy := AdminPolicy{RestrictedEmails: []string{"admin@mukha.com"}}

	if !policy.IsRestricted("admin@mukha.com") {
		t.Error("expected listed email to be restricted")
	}
	if !policy.IsRestricted("ADMIN@MUKHA.COM") {
		t.Error("restriction check should be case-insensitive")
	}
	if policy.IsRestricted("user@mukha.com") {
		t.Error("unlisted email should not be restricted")
	}
}
