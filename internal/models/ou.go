package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrganizationalUnit holds users, groups and child OUs, and can be linked to
// GPOs. GPLink and GPOptions are derived projection fields recomputed on any
// mutation affecting them; they must not be trusted as authoritative inputs.
type OrganizationalUnit struct {
	ID               uuid.UUID
	Name             string
	DN               string
	Parent           *uuid.UUID
	Users            []uuid.UUID
	Groups           []uuid.UUID
	ChildOUs         []uuid.UUID
	LinkedGPOs       []uuid.UUID
	BlockInheritance bool
	Enforced         bool
	GPLink           string
	GPOptions        uint32
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Meta             map[string]string
}

// NewOU constructs an OU with an empty membership and no linked GPOs.
func NewOU(name, dn string, parent *uuid.UUID) OrganizationalUnit {
	now := time.Now().UTC()
	return OrganizationalUnit{
		ID:         uuid.New(),
		Name:       name,
		DN:         dn,
		Parent:     parent,
		Users:      []uuid.UUID{},
		Groups:     []uuid.UUID{},
		ChildOUs:   []uuid.UUID{},
		LinkedGPOs: []uuid.UUID{},
		CreatedAt:  now,
		UpdatedAt:  now,
		Meta:       map[string]string{},
	}
}

// UpdateGPLink recomputes GPLink from LinkedGPOs and Enforced, per spec §3:
// "[<gpo_id>;<flag>]"... where flag is 2 if the OU carries Enforced, else 1.
func (o *OrganizationalUnit) UpdateGPLink() {
	flag := 1
	if o.Enforced {
		flag = 2
	}
	var sb strings.Builder
	for _, gpoID := range o.LinkedGPOs {
		fmt.Fprintf(&sb, "[%s;%d]", gpoID, flag)
	}
	o.GPLink = sb.String()
}

// UpdateGPOptions recomputes GPOptions from BlockInheritance.
func (o *OrganizationalUnit) UpdateGPOptions() {
	if o.BlockInheritance {
		o.GPOptions = 1
	} else {
		o.GPOptions = 0
	}
}

// HasLinkedGPO reports whether gpoID is already present in LinkedGPOs.
func (o OrganizationalUnit) HasLinkedGPO(gpoID uuid.UUID) bool {
	for _, id := range o.LinkedGPOs {
		if id == gpoID {
			return true
		}
	}
	return false
}
