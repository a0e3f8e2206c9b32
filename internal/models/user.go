package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a directory principal: a stable UUID identity plus the LDAP/AD
// attribute surface needed for search responses.
type User struct {
	ID                  uuid.UUID
	SID                 SecurityIdentifier
	Username            string
	UserPrincipalName   string
	Email               *string
	DisplayName         *string
	GivenName           *string
	Surname             *string
	PasswordHash        PasswordHash
	PasswordExpires     *time.Time
	LastPasswordChange  time.Time
	LockoutUntil        *time.Time
	FailedLogins        int
	Enabled             bool
	MFAEnabled          bool
	MFAMethods          []MfaMethod
	Domains             []uuid.UUID
	Groups              []uuid.UUID
	OrganizationalUnit  *uuid.UUID
	PrimaryGroupID      *uint32
	ProfilePath         *string
	ScriptPath          *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastLogin           *time.Time
	Meta                map[string]string
}

// LDAPEntryService is the subset of DirectoryService a User needs to build
// its LDAP attribute set (group memberships, token groups). Declared here to
// avoid an import cycle with the directory package.
type LDAPEntryService interface {
	FindGroupsByMember(userID uuid.UUID) ([]Group, error)
	GetTokenGroups(userID uuid.UUID) ([]SecurityIdentifier, error)
}

// formatLDAPTime renders t in the AD GeneralizedTime style used by this
// directory's entries, e.g. 20240102150405.0Z.
func formatLDAPTime(t time.Time) string {
	return t.UTC().Format("20060102150405") + ".0Z"
}

// ToLDAPEntry builds the attribute map emitted by a SEARCH response for this
// user, keyed by attribute name with one or more string values each.
func (u User) ToLDAPEntry(dn string, svc LDAPEntryService) (map[string][]string, error) {
	entry := map[string][]string{
		"objectClass":       {"top", "person", "organizationalPerson", "user"},
		"distinguishedName": {dn},
		"cn":                {u.displayNameOrUsername()},
		"sAMAccountName":    {u.Username},
		"userPrincipalName": {u.UserPrincipalName},
		"uid":               {u.Username},
		"name":              {u.displayNameOrUsername()},
		"objectSid":         {u.SID.String()},
		"whenCreated":       {formatLDAPTime(u.CreatedAt)},
		"whenChanged":       {formatLDAPTime(u.UpdatedAt)},
		"createdAt":         {u.CreatedAt.UTC().Format(time.RFC3339)},
	}

	if u.Email != nil {
		entry["mail"] = []string{*u.Email}
	}
	if u.GivenName != nil {
		entry["givenName"] = []string{*u.GivenName}
	}
	if u.Surname != nil {
		entry["sn"] = []string{*u.Surname}
	}
	if u.LastLogin != nil {
		entry["lastLogon"] = []string{formatLDAPTime(*u.LastLogin)}
	}
	if u.PasswordExpires != nil {
		entry["accountExpires"] = []string{formatLDAPTime(*u.PasswordExpires)}
	}

	entry["userAccountControl"] = []string{userAccountControl(u.Enabled)}

	if svc != nil {
		groups, err := svc.FindGroupsByMember(u.ID)
		if err != nil {
			return nil, err
		}
		memberOf := make([]string, 0, len(groups))
		for _, g := range groups {
			memberOf = append(memberOf, g.DN)
		}
		if len(memberOf) > 0 {
			entry["memberOf"] = memberOf
		}

		if u.PrimaryGroupID != nil {
			entry["primaryGroupToken"] = []string{u.SID.WithRID(*u.PrimaryGroupID).String()}
		}

		tokenGroups, err := svc.GetTokenGroups(u.ID)
		if err != nil {
			return nil, err
		}
		if len(tokenGroups) > 0 {
			vals := make([]string, 0, len(tokenGroups))
			for _, sid := range tokenGroups {
				vals = append(vals, sid.String())
			}
			entry["tokenGroups"] = vals
		}
	}

	return entry, nil
}

func (u User) displayNameOrUsername() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}

// userAccountControl renders a minimal AD-style userAccountControl value:
// 512 (NORMAL_ACCOUNT) when enabled, 514 (NORMAL_ACCOUNT|ACCOUNTDISABLE)
// otherwise.
func userAccountControl(enabled bool) string {
	if enabled {
		return "512"
	}
	return "514"
}

// ValidUsername reports whether s satisfies the username shape required by
// the data model: non-empty, at most 64 characters, alphanumeric plus
// underscore and hyphen.
func ValidUsername(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// FoldSAM normalizes a SAM account name for index-key comparisons: upper case.
func FoldSAM(s string) string { return strings.ToUpper(s) }
