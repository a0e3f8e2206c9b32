package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PolicyType identifies the category of settings a GroupPolicy carries. The
// reference implementation models this as a Rust enum, most variants unit-
// like plus one payload-carrying Custom(String) variant; Go has no closed
// sum type, so each variant is its own struct implementing the unexported
// marker method, the standard idiom for one-of-several-shapes data.
type PolicyType interface {
	isPolicyType()
}

type SecurityPolicyType struct{}

func (SecurityPolicyType) isPolicyType() {}

type RegistryPolicyType struct{}

func (RegistryPolicyType) isPolicyType() {}

type ScriptPolicyType struct{}

func (ScriptPolicyType) isPolicyType() {}

type NetworkPolicyType struct{}

func (NetworkPolicyType) isPolicyType() {}

type SoftwarePolicyType struct{}

func (SoftwarePolicyType) isPolicyType() {}

type FolderRedirectionPolicyType struct{}

func (FolderRedirectionPolicyType) isPolicyType() {}

type CustomPolicyType struct{ Name string }

func (CustomPolicyType) isPolicyType() {}

// DefaultPolicyType is the zero-value policy type, matching the reference
// implementation's Default impl for PolicyType.
func DefaultPolicyType() PolicyType { return CustomPolicyType{Name: "Custom"} }

// PolicyTarget identifies what object class a GroupPolicy is scoped to.
type PolicyTarget interface {
	isPolicyTarget()
	// ID returns the target's object ID, or (uuid.Nil, false) for "All".
	ID() (uuid.UUID, bool)
	IsAll() bool
}

type AllTarget struct{}

func (AllTarget) isPolicyTarget()          {}
func (AllTarget) ID() (uuid.UUID, bool)    { return uuid.Nil, false }
func (AllTarget) IsAll() bool              { return true }

type DomainTarget struct{ DomainID uuid.UUID }

func (DomainTarget) isPolicyTarget()       {}
func (t DomainTarget) ID() (uuid.UUID, bool) { return t.DomainID, true }
func (DomainTarget) IsAll() bool           { return false }

type OUTarget struct{ OUID uuid.UUID }

func (OUTarget) isPolicyTarget()           {}
func (t OUTarget) ID() (uuid.UUID, bool)   { return t.OUID, true }
func (OUTarget) IsAll() bool               { return false }

type GroupTarget struct{ GroupID uuid.UUID }

func (GroupTarget) isPolicyTarget()        {}
func (t GroupTarget) ID() (uuid.UUID, bool) { return t.GroupID, true }
func (GroupTarget) IsAll() bool            { return false }

type UserTarget struct{ UserID uuid.UUID }

func (UserTarget) isPolicyTarget()         {}
func (t UserTarget) ID() (uuid.UUID, bool) { return t.UserID, true }
func (UserTarget) IsAll() bool             { return false }

// PolicyValue is a single typed setting inside a GroupPolicy's settings map.
// List holds other PolicyValues so nested structures, the one genuinely
// recursive variant in the reference enum, still round-trip.
type PolicyValue interface {
	isPolicyValue()
}

type StringValue struct{ Value string }

func (StringValue) isPolicyValue() {}

type IntValue struct{ Value int64 }

func (IntValue) isPolicyValue() {}

type BoolValue struct{ Value bool }

func (BoolValue) isPolicyValue() {}

type ListValue struct{ Values []PolicyValue }

func (ListValue) isPolicyValue() {}

type BinaryValue struct{ Value []byte }

func (BinaryValue) isPolicyValue() {}

// SidOrId is either a resolved SecurityIdentifier or a bare object UUID, the
// two forms a security-filtering entry can take.
type SidOrId interface {
	isSidOrId()
	// MatchesSID reports whether this entry names sid directly. An Id entry
	// never matches a SID, matching the reference implementation.
	MatchesSID(sid SecurityIdentifier) bool
}

type SidRef struct{ SID SecurityIdentifier }

func (SidRef) isSidOrId() {}
func (r SidRef) MatchesSID(sid SecurityIdentifier) bool { return r.SID.Equal(sid) }

type IDRef struct{ ID uuid.UUID }

func (IDRef) isSidOrId()                              {}
func (IDRef) MatchesSID(sid SecurityIdentifier) bool { return false }

// GroupPolicy is a named, versioned bundle of settings (a GPO) linked to one
// or more OUs or domains.
type GroupPolicy struct {
	ID                uuid.UUID
	Name              string
	DisplayName       *string
	Description       *string
	Version           uint32
	Type              PolicyType
	Target            PolicyTarget
	Settings          map[string]PolicyValue
	Enabled           bool
	Enforced          bool
	Order             uint32
	SecurityFiltering []SidOrId
	WMIFilter         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LinkedTo          []uuid.UUID
}

// NewGroupPolicy constructs an enabled, unenforced, version-1 policy
// targeting "All" with no settings or links, mirroring GroupPolicy::new.
func NewGroupPolicy(name string) GroupPolicy {
	now := time.Now().UTC()
	return GroupPolicy{
		ID:                uuid.New(),
		Name:              name,
		DisplayName:       &name,
		Version:           1,
		Type:              DefaultPolicyType(),
		Target:            AllTarget{},
		Settings:          map[string]PolicyValue{},
		Enabled:           true,
		SecurityFiltering: nil,
		CreatedAt:         now,
		UpdatedAt:         now,
		LinkedTo:          []uuid.UUID{},
	}
}

// IncrementVersion bumps Version and refreshes UpdatedAt.
func (p *GroupPolicy) IncrementVersion() {
	p.Version++
	p.UpdatedAt = time.Now().UTC()
}

// Touch is an alias for IncrementVersion, matching the reference API surface.
func (p *GroupPolicy) Touch() { p.IncrementVersion() }

// LinkTo adds id to LinkedTo if not already present.
func (p *GroupPolicy) LinkTo(id uuid.UUID) {
	for _, existing := range p.LinkedTo {
		if existing == id {
			return
		}
	}
	p.LinkedTo = append(p.LinkedTo, id)
}

// Unlink removes id from LinkedTo.
func (p *GroupPolicy) Unlink(id uuid.UUID) {
	out := p.LinkedTo[:0]
	for _, existing := range p.LinkedTo {
		if existing != id {
			out = append(out, existing)
		}
	}
	p.LinkedTo = out
}

// SetSetting stores value under key in Settings.
func (p *GroupPolicy) SetSetting(key string, value PolicyValue) {
	p.Settings[key] = value
}

// GetSetting returns the value under key, if any.
func (p GroupPolicy) GetSetting(key string) (PolicyValue, bool) {
	v, ok := p.Settings[key]
	return v, ok
}

// IsApplicableTo reports whether this policy applies to a principal given
// its own SID and the SIDs of groups it belongs to: disabled policies never
// apply, and a non-empty SecurityFiltering list requires a direct or
// group-membership match.
func (p GroupPolicy) IsApplicableTo(principalSID SecurityIdentifier, groupSIDs []SecurityIdentifier) bool {
	if !p.Enabled {
		return false
	}
	if len(p.SecurityFiltering) == 0 {
		return true
	}
	for _, filter := range p.SecurityFiltering {
		ref, ok := filter.(SidRef)
		if !ok {
			continue
		}
		if ref.SID.Equal(principalSID) {
			return true
		}
		for _, g := range groupSIDs {
			if ref.SID.Equal(g) {
				return true
			}
		}
	}
	return false
}

// Validate checks the policy's internal consistency before it is persisted.
func (p GroupPolicy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("policy name cannot be empty")
	}
	if p.DisplayName != nil && strings.TrimSpace(*p.DisplayName) == "" {
		return errors.New("display name cannot be empty")
	}
	if p.Version == 0 {
		return errors.New("version must be at least 1")
	}
	if len(p.LinkedTo) == 0 && !p.Target.IsAll() {
		return errors.New("policy must be linked to an object or target 'All'")
	}
	return nil
}
