package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FunctionalLevel is the domain's AD functional level.
type FunctionalLevel int

const (
	FunctionalLevel2016 FunctionalLevel = iota
	FunctionalLevel2022
	FunctionalLevelNative
)

// Well-known container GUIDs, fixed constants per spec §3. These mirror the
// handful of AD well-known container identifiers the original implementation
// carried in two parallel forms (models/well_known.rs duplicated
// models/domain.rs's own constant set); this implementation keeps a single
// copy here, attached to Domain construction, and does not carry the
// redundant second implementation forward.
const (
	WellKnownUsersGUID                   = "a9d1ca15-766b-4fca-8723-2070d5b28a4a"
	WellKnownComputersGUID               = "aa312825-0c57-4f01-89d6-7e5c0a56efc9"
	WellKnownDomainControllersGUID       = "6227f0af-1fc2-4770-a0a3-9cb7b5dd6e8b"
	WellKnownProgramDataGUID             = "09460bc6-7f26-42f2-9d00-f36f4b01fdd1"
	WellKnownForeignSecurityPrincipalsGUID = "22b70c67-d7b9-47de-9d06-9309cd67ab3a"
)

// Domain is a directory partition: a DNS/NetBIOS-named namespace with its
// own SID, OUs, groups, users and policies.
type Domain struct {
	ID               uuid.UUID
	SID              SecurityIdentifier
	Name             string
	DNSName          string
	NetBIOSName      string
	FunctionalLevel  FunctionalLevel
	ParentDomain     *uuid.UUID
	ChildDomains     []uuid.UUID
	Users            []uuid.UUID
	Groups           []uuid.UUID
	OUs              []uuid.UUID
	Policies         []uuid.UUID
	Enabled          bool
	CreatedAt        time.Time
	WellKnownObjects map[string]string
	Meta             map[string]string
}

// DN renders the domain's distinguished name, DC=a,DC=b,... derived from its
// DNS name.
func (d Domain) DN() string {
	labels := strings.Split(d.DNSName, ".")
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		parts = append(parts, "DC="+l)
	}
	return strings.Join(parts, ",")
}

// NewDomainWithDefaults builds a Domain with a derived NetBIOS name,
// well-known container DNs, and the given SID.
func NewDomainWithDefaults(name, dnsName string, sid SecurityIdentifier) Domain {
	d := Domain{
		ID:              uuid.New(),
		SID:             sid,
		Name:            name,
		DNSName:         dnsName,
		NetBIOSName:     deriveNetBIOSName(dnsName),
		FunctionalLevel: FunctionalLevel2022,
		ChildDomains:    []uuid.UUID{},
		Users:           []uuid.UUID{},
		Groups:          []uuid.UUID{},
		OUs:             []uuid.UUID{},
		Policies:        []uuid.UUID{},
		Enabled:         true,
		CreatedAt:       time.Now().UTC(),
		Meta:            map[string]string{},
	}
	base := d.DN()
	d.WellKnownObjects = map[string]string{
		WellKnownUsersGUID:                   fmt.Sprintf("CN=Users,%s", base),
		WellKnownComputersGUID:               fmt.Sprintf("CN=Computers,%s", base),
		WellKnownDomainControllersGUID:       fmt.Sprintf("OU=Domain Controllers,%s", base),
		WellKnownProgramDataGUID:             fmt.Sprintf("CN=Program Data,%s", base),
		WellKnownForeignSecurityPrincipalsGUID: fmt.Sprintf("CN=ForeignSecurityPrincipals,%s", base),
	}
	return d
}

func deriveNetBIOSName(dnsName string) string {
	labels := strings.Split(dnsName, ".")
	if len(labels) == 0 {
		return ""
	}
	name := strings.ToUpper(labels[0])
	if len(name) > 15 {
		name = name[:15]
	}
	return name
}
