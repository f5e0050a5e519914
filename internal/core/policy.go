package core

import "strings"

// AdminPolicy decides which registrations are refused outright and which
// are granted admin rights. It replaces the inline literals the original
// deployment baked into its registration handler: the lists come from
// configuration, and the "first user ever becomes admin" rule is an
// explicit check against the user count instead of incidental database
// state.
type AdminPolicy struct {
	BootstrapEmails  []string // always granted admin at registration
	RestrictedEmails []string // refused at registration
}

func (p AdminPolicy) IsRestricted(email string) bool {
	return containsEmail(p.RestrictedEmails, email)
}

// ShouldGrantAdmin reports whether a registration should produce an admin
// account: the very first user ever, or any configured bootstrap email.
func (p AdminPolicy) ShouldGrantAdmin(email string, existingUsers int64) bool {
	if existingUsers == 0 {
		return true
	}
	return containsEmail(p.BootstrapEmails, email)
}

func containsEmail(list []string, email string) bool {
	email = strings.ToLower(email)
	for _, e := range list {
		if strings.ToLower(e) == email {
			return true
		}
	}
	return false
}
