package models

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// GroupTypeFlags is a bitset describing a group's nature. The reference
// implementation uses a Rust bitflags! macro over these same bit values;
// Go has no equivalent in this pack's dependency set, so this is rendered
// as a plain typed integer with const bit values, the idiomatic Go shape
// for a small closed bitset.
type GroupTypeFlags uint32

const (
	GroupTypeSecurity    GroupTypeFlags = 0x80000000
	GroupTypeDistribution GroupTypeFlags = 0x1
	GroupTypeBuiltin     GroupTypeFlags = 0x2
)

// Has reports whether all bits in mask are set.
func (f GroupTypeFlags) Has(mask GroupTypeFlags) bool { return f&mask == mask }

// GroupScope is the AD group scope.
type GroupScope int

const (
	GroupScopeDomainLocal GroupScope = iota
	GroupScopeGlobal
	GroupScopeUniversal
)

// Group is a collection of users sharing a SAM account name and scope.
type Group struct {
	ID              uuid.UUID
	SID             SecurityIdentifier
	Name            string
	SAMAccountName  string
	DomainID        uuid.UUID
	Scope           GroupScope
	TypeFlags       GroupTypeFlags
	Members         []uuid.UUID
	Description     *string
	DN              string
	CreatedAt       time.Time
	Meta            map[string]string
}

// NewGroup constructs a Group the way the CLI/REST create paths do: a fresh
// ID, a SID minted under NT Authority, and an empty member list.
func NewGroup(name, sam string, domainID uuid.UUID, typeFlags GroupTypeFlags, scope GroupScope) Group {
	id := uuid.New()
	return Group{
		ID:             id,
		SID:            NewNTAuthoritySID(ridFromUUID(id)),
		Name:           name,
		SAMAccountName: sam,
		DomainID:       domainID,
		Scope:          scope,
		TypeFlags:      typeFlags,
		Members:        []uuid.UUID{},
		CreatedAt:      time.Now().UTC(),
		Meta:           map[string]string{},
	}
}

// ridFromUUID derives a deterministic 32-bit RID from the low bytes of a
// UUID. It must be stable for a given UUID so that token-group computation
// agrees between writer and reader.
func ridFromUUID(id uuid.UUID) uint32 {
	return binary.BigEndian.Uint32(id[12:16])
}

// GetRID returns this group's relative identifier, deterministic from its
// UUID bytes. Security groups are nudged past the 0-999 well-known range
// reserved for built-in accounts and groups.
func (g Group) GetRID() uint32 {
	rid := ridFromUUID(g.ID)
	if g.TypeFlags.Has(GroupTypeSecurity) && rid < 1000 {
		rid += 1000
	}
	return rid
}

// GetPrimaryGroupToken returns this group's SID with the last sub-authority
// replaced by its RID, the form used when a user's primaryGroupID points at
// this group.
func (g Group) GetPrimaryGroupToken() SecurityIdentifier {
	return g.SID.WithRID(g.GetRID())
}

// HasMember reports whether uid is already present in Members.
func (g Group) HasMember(uid uuid.UUID) bool {
	for _, m := range g.Members {
		if m == uid {
			return true
		}
	}
	return false
}
