// Package roles decides admin vs user from identity attributes. The decision
// is pure: allow-lists are parsed on every call, so a config change takes
// effect on the next resolution without a restart.
package roles

import (
	"strings"

	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/utils"
)

type Config struct {
	// AdminEmails and AdminOpenIDs are delimiter-tolerant lists: commas,
	// semicolons or whitespace all separate entries.
	AdminEmails  string
	AdminOpenIDs string
}

// Resolve returns the role for the given identity. The allow-lists are
// authoritative: a client-requested admin role is honored only when the
// identity is also listed, and a listed identity is admin whether or not it
// asked. Anything else would let a caller self-escalate.
func Resolve(cfg Config, email, openID, requested string) domain.Role {
	email = strings.ToLower(strings.TrimSpace(email))
	openID = strings.TrimSpace(openID)

	if emailListed(cfg.AdminEmails, email) || openIDListed(cfg.AdminOpenIDs, openID) {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

func emailListed(list, email string) bool {
	if email == "" {
		return false
	}
	for _, entry := range utils.SplitList(list) {
		if strings.EqualFold(entry, email) {
			return true
		}
	}
	return false
}

func openIDListed(list, openID string) bool {
	if openID == "" {
		return false
	}
	for _, entry := range utils.SplitList(list) {
		if entry == openID {
			return true
		}
	}
	return false
}
