// Package models defines the directory entity value types shared by the
// storage, directory, LDAP and API layers.
package models

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// SecurityIdentifier is a Windows-style SID: a revision byte, a 6-byte
// authority, and an ordered list of sub-authorities.
type SecurityIdentifier struct {
	Revision       uint8
	Authority      [6]byte
	SubAuthorities []uint32
}

// ErrInvalidSID is returned when a SID cannot be parsed from a string or
// byte buffer.
type ErrInvalidSID struct{ Msg string }

func (e ErrInvalidSID) Error() string { return fmt.Sprintf("invalid SID: %s", e.Msg) }

// authorityValue renders the 6-byte authority as the 48-bit big-endian
// decimal AD actually uses, unlike some reference implementations that only
// print the last byte.
func authorityValue(auth [6]byte) uint64 {
	var buf [8]byte
	copy(buf[2:], auth[:])
	return binary.BigEndian.Uint64(buf[:])
}

// String renders the canonical S-<rev>-<auth>-<sub>... form.
func (s SecurityIdentifier) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "S-%d-%d", s.Revision, authorityValue(s.Authority))
	for _, sub := range s.SubAuthorities {
		fmt.Fprintf(&sb, "-%d", sub)
	}
	return sb.String()
}

// Equal reports structural equality, per the spec's SID-equality invariant.
func (s SecurityIdentifier) Equal(other SecurityIdentifier) bool {
	if s.Revision != other.Revision || s.Authority != other.Authority {
		return false
	}
	if len(s.SubAuthorities) != len(other.SubAuthorities) {
		return false
	}
	for i := range s.SubAuthorities {
		if s.SubAuthorities[i] != other.SubAuthorities[i] {
			return false
		}
	}
	return true
}

// WithRID returns a copy of the SID with its last sub-authority replaced,
// used to derive token-group and primary-group SIDs from a base SID.
func (s SecurityIdentifier) WithRID(rid uint32) SecurityIdentifier {
	out := s
	out.SubAuthorities = append([]uint32(nil), s.SubAuthorities...)
	if len(out.SubAuthorities) == 0 {
		out.SubAuthorities = []uint32{rid}
		return out
	}
	out.SubAuthorities[len(out.SubAuthorities)-1] = rid
	return out
}

// NewNTAuthoritySID builds a SID under the well-known NT Authority (S-1-5)
// with a single trailing sub-authority, the shape used throughout this
// directory for domain, group and bootstrap SIDs.
func NewNTAuthoritySID(rid uint32) SecurityIdentifier {
	return SecurityIdentifier{
		Revision:       1,
		Authority:      [6]byte{0, 0, 0, 0, 0, 5},
		SubAuthorities: []uint32{rid},
	}
}

// ParseSID parses the canonical string form produced by String.
func ParseSID(s string) (SecurityIdentifier, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 3 || parts[0] != "S" {
		return SecurityIdentifier{}, ErrInvalidSID{"must start with S- and carry a revision and authority"}
	}
	rev, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return SecurityIdentifier{}, ErrInvalidSID{"invalid revision"}
	}
	authDec, err := strconv.ParseUint(parts[2], 10, 48)
	if err != nil {
		return SecurityIdentifier{}, ErrInvalidSID{"invalid authority"}
	}
	var authBuf [8]byte
	binary.BigEndian.PutUint64(authBuf[:], authDec)
	var authority [6]byte
	copy(authority[:], authBuf[2:])

	subs := make([]uint32, 0, len(parts)-3)
	for _, p := range parts[3:] {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return SecurityIdentifier{}, ErrInvalidSID{fmt.Sprintf("invalid sub-authority %q", p)}
		}
		subs = append(subs, uint32(v))
	}

	return SecurityIdentifier{
		Revision:       uint8(rev),
		Authority:      authority,
		SubAuthorities: subs,
	}, nil
}
