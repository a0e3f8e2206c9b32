package directory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nextdomen/mextdomen/internal/models"
)

func gpoKey(id uuid.UUID) string         { return "gpo:" + id.String() }
func gpoLinkIndexKey(targetID uuid.UUID) string { return "gpo_link:" + targetID.String() }

const allGPOsIndexKey = "all_gpos_index"

// CreateGPO validates gpo, stores it, indexes it against every target in
// LinkedTo, and records it in the all-GPOs index.
func (s *Service) CreateGPO(gpo *models.GroupPolicy) error {
	if err := gpo.Validate(); err != nil {
		return invalidInput(err.Error())
	}

	if err := s.store(gpoKey(gpo.ID), gpo); err != nil {
		return err
	}
	for _, targetID := range gpo.LinkedTo {
		if err := s.addGPOToLinkIndex(targetID, gpo.ID); err != nil {
			return err
		}
	}

	var allGPOs []uuid.UUID
	if _, err := s.load(allGPOsIndexKey, &allGPOs); err != nil {
		return err
	}
	if !containsUUID(allGPOs, gpo.ID) {
		allGPOs = append(allGPOs, gpo.ID)
		if err := s.store(allGPOsIndexKey, allGPOs); err != nil {
			return err
		}
	}

	s.logAction("create_gpo", "gpo:"+gpo.ID.String(), nil)
	return nil
}

// GetGPO returns the GPO with id, or (nil, nil) if absent.
func (s *Service) GetGPO(id uuid.UUID) (*models.GroupPolicy, error) {
	var gpo models.GroupPolicy
	ok, err := s.load(gpoKey(id), &gpo)
	if err != nil || !ok {
		return nil, err
	}
	return &gpo, nil
}

// GetAllGPOs returns every GPO known to the directory.
func (s *Service) GetAllGPOs() ([]models.GroupPolicy, error) {
	var ids []uuid.UUID
	if _, err := s.load(allGPOsIndexKey, &ids); err != nil {
		return nil, err
	}
	return s.loadGPOs(ids)
}

// FindGPOsForOU returns every GPO linked to ouID.
func (s *Service) FindGPOsForOU(ouID uuid.UUID) ([]models.GroupPolicy, error) {
	var ids []uuid.UUID
	if _, err := s.load(gpoLinkIndexKey(ouID), &ids); err != nil {
		return nil, err
	}
	return s.loadGPOs(ids)
}

// FindGPOsForDomain returns every GPO linked to domainID.
func (s *Service) FindGPOsForDomain(domainID uuid.UUID) ([]models.GroupPolicy, error) {
	var ids []uuid.UUID
	if _, err := s.load(gpoLinkIndexKey(domainID), &ids); err != nil {
		return nil, err
	}
	return s.loadGPOs(ids)
}

func (s *Service) loadGPOs(ids []uuid.UUID) ([]models.GroupPolicy, error) {
	gpos := make([]models.GroupPolicy, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGPO(id)
		if err != nil {
			return nil, err
		}
		if g != nil {
			gpos = append(gpos, *g)
		}
	}
	return gpos, nil
}

// LinkGPOToOU links gpoID to ouID: adds the link to the OU's LinkedGPOs,
// marks the OU enforced, refreshes its GPLink projection, and indexes the
// link for resolution lookups.
func (s *Service) LinkGPOToOU(gpoID, ouID uuid.UUID) error {
	if gpo, err := s.GetGPO(gpoID); err != nil {
		return err
	} else if gpo == nil {
		return notFound("GPO not found")
	}

	ou, err := s.GetOU(ouID)
	if err != nil {
		return err
	}
	if ou == nil {
		return notFound("OU not found")
	}

	if !ou.HasLinkedGPO(gpoID) {
		ou.LinkedGPOs = append(ou.LinkedGPOs, gpoID)
		ou.Enforced = true
		ou.UpdateGPLink()
		ou.UpdatedAt = time.Now().UTC()
		if err := s.store(ouKey(ou.ID), ou); err != nil {
			return err
		}
		if err := s.addGPOToLinkIndex(ouID, gpoID); err != nil {
			return err
		}
	}

	s.logAction("link_gpo_to_ou", "gpo:"+gpoID.String()+" ou:"+ouID.String(), nil)
	return nil
}

// UnlinkGPOFromOU removes the gpoID/ouID link established by LinkGPOToOU.
func (s *Service) UnlinkGPOFromOU(gpoID, ouID uuid.UUID) error {
	ou, err := s.GetOU(ouID)
	if err != nil {
		return err
	}
	if ou == nil {
		return notFound("OU not found")
	}

	if ou.HasLinkedGPO(gpoID) {
		linked := ou.LinkedGPOs[:0]
		for _, id := range ou.LinkedGPOs {
			if id != gpoID {
				linked = append(linked, id)
			}
		}
		ou.LinkedGPOs = linked
		ou.UpdateGPLink()
		ou.UpdatedAt = time.Now().UTC()
		if err := s.store(ouKey(ou.ID), ou); err != nil {
			return err
		}
		if err := s.removeGPOFromLinkIndex(ouID, gpoID); err != nil {
			return err
		}
	}

	s.logAction("unlink_gpo_from_ou", "gpo:"+gpoID.String()+" ou:"+ouID.String(), nil)
	return nil
}

// IsGPOApplicableTo reports whether gpo's security filtering allows
// principalSID. An empty filter list applies to everyone.
func (s *Service) IsGPOApplicableTo(gpo *models.GroupPolicy, principalSID models.SecurityIdentifier) bool {
	if len(gpo.SecurityFiltering) == 0 {
		return true
	}
	for _, filter := range gpo.SecurityFiltering {
		if ref, ok := filter.(models.SidRef); ok && ref.SID.Equal(principalSID) {
			return true
		}
	}
	return false
}

// sortGPOs orders gpos enforced-first, then by ascending Order, matching the
// comparator applied at every resolution step.
func sortGPOs(gpos []models.GroupPolicy) {
	sort.SliceStable(gpos, func(i, j int) bool {
		if gpos[i].Enforced != gpos[j].Enforced {
			return gpos[i].Enforced
		}
		return gpos[i].Order < gpos[j].Order
	})
}

func dedupGPOs(gpos []models.GroupPolicy) []models.GroupPolicy {
	seen := make(map[uuid.UUID]bool, len(gpos))
	unique := make([]models.GroupPolicy, 0, len(gpos))
	for _, g := range gpos {
		if !seen[g.ID] {
			seen[g.ID] = true
			unique = append(unique, g)
		}
	}
	return unique
}

// GetEffectiveGPOsForOU walks ouID's ancestry, accumulating each level's
// linked GPOs (enforced-first, then by Order) and following Parent upward,
// until the root OU or a blocking ancestor is reached.
//
// Block-inheritance is checked on each OU as it is visited, and only takes
// effect once at least one GPO has already been accumulated: when such an OU
// has BlockInheritance set, only its own Enforced GPOs are appended and the
// walk stops there, so nothing above it is visited. The starting OU's flag is
// checked while nothing is accumulated yet, so it does not cut off its
// ancestors. A circular Parent chain is reported as an error rather than
// looped forever.
func (s *Service) GetEffectiveGPOsForOU(ouID uuid.UUID) ([]models.GroupPolicy, error) {
	var allGPOs []models.GroupPolicy
	visited := map[uuid.UUID]bool{}
	current := &ouID

	for current != nil {
		if visited[*current] {
			return nil, invalidInput("circular OU hierarchy detected")
		}
		visited[*current] = true

		ou, err := s.GetOU(*current)
		if err != nil {
			return nil, err
		}
		if ou == nil {
			return nil, notFound("OU not found")
		}

		if len(allGPOs) > 0 && ou.BlockInheritance {
			gpos, err := s.FindGPOsForOU(*current)
			if err != nil {
				return nil, err
			}
			for _, g := range gpos {
				if g.Enforced {
					allGPOs = append(allGPOs, g)
				}
			}
			break
		}

		gpos, err := s.FindGPOsForOU(*current)
		if err != nil {
			return nil, err
		}
		sortGPOs(gpos)
		allGPOs = append(allGPOs, gpos...)

		current = ou.Parent
	}

	return dedupGPOs(allGPOs), nil
}

// GetEffectiveGPOsForUser combines a user's OU ancestry resolution with any
// GPOs linked directly to the user's primary domain, deduplicates, and
// finally re-sorts the whole combined set enforced-first then by Order —
// unlike GetEffectiveGPOsForOU, which only sorts each level's fresh batch
// before appending it.
func (s *Service) GetEffectiveGPOsForUser(userID uuid.UUID) ([]models.GroupPolicy, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user not found")
	}

	var allGPOs []models.GroupPolicy

	if user.OrganizationalUnit != nil {
		gpos, err := s.GetEffectiveGPOsForOU(*user.OrganizationalUnit)
		if err != nil {
			return nil, err
		}
		allGPOs = append(allGPOs, gpos...)
	}

	if len(user.Domains) > 0 {
		gpos, err := s.FindGPOsForDomain(user.Domains[0])
		if err != nil {
			return nil, err
		}
		allGPOs = append(allGPOs, gpos...)
	}

	unique := dedupGPOs(allGPOs)
	sortGPOs(unique)
	return unique, nil
}

// GetTokenGroups returns the SIDs a user's group memberships and primary
// group projection resolve to, the set an LDAP client expects under
// tokenGroups.
func (s *Service) GetTokenGroups(userID uuid.UUID) ([]models.SecurityIdentifier, error) {
	var tokens []models.SecurityIdentifier

	groups, err := s.FindGroupsByMember(userID)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		tokens = append(tokens, g.SID)
	}

	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user != nil && user.PrimaryGroupID != nil {
		group, err := s.FindGroupByRID(*user.PrimaryGroupID)
		if err != nil {
			return nil, err
		}
		if group != nil {
			tokens = append(tokens, group.GetPrimaryGroupToken())
		}
	}

	return tokens, nil
}

func (s *Service) addGPOToLinkIndex(targetID, gpoID uuid.UUID) error {
	key := gpoLinkIndexKey(targetID)
	var ids []uuid.UUID
	if _, err := s.load(key, &ids); err != nil {
		return err
	}
	if containsUUID(ids, gpoID) {
		return nil
	}
	ids = append(ids, gpoID)
	return s.store(key, ids)
}

func (s *Service) removeGPOFromLinkIndex(targetID, gpoID uuid.UUID) error {
	key := gpoLinkIndexKey(targetID)
	var ids []uuid.UUID
	if _, err := s.load(key, &ids); err != nil {
		return err
	}
	ids = removeUUID(ids, gpoID)
	return s.store(key, ids)
}
