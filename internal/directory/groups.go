package directory

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nextdomen/mextdomen/internal/models"
)

func groupKey(id uuid.UUID) string         { return "group:" + id.String() }
func samIndexKey(sam string) string        { return "sam_account_name_index:" + models.FoldSAM(sam) }
func memberIndexKey(userID uuid.UUID) string { return "member_index:" + userID.String() }

const allGroupsIndexKey = "all_groups_index"

// CreateGroup stores group, rejecting a SAM account name collision with a
// different group, indexes its initial members, and records it in the
// all-groups index.
func (s *Service) CreateGroup(group *models.Group) error {
	if existing, err := s.FindGroupBySAMAccountName(group.SAMAccountName); err != nil {
		return err
	} else if existing != nil && existing.ID != group.ID {
		return alreadyExists(fmt.Sprintf("group %s already exists", group.SAMAccountName))
	}

	if err := s.store(groupKey(group.ID), group); err != nil {
		return err
	}
	if err := s.store(samIndexKey(group.SAMAccountName), group.ID); err != nil {
		return err
	}

	for _, memberID := range group.Members {
		if err := s.addMemberToIndex(memberID, group.ID); err != nil {
			return err
		}
	}

	var allGroups []uuid.UUID
	if _, err := s.load(allGroupsIndexKey, &allGroups); err != nil {
		return err
	}
	if !containsUUID(allGroups, group.ID) {
		allGroups = append(allGroups, group.ID)
		if err := s.store(allGroupsIndexKey, allGroups); err != nil {
			return err
		}
	}

	s.logAction("create_group", "sam_account_name:"+group.SAMAccountName, nil)
	return nil
}

// GetGroup returns the group with id, or (nil, nil) if absent.
func (s *Service) GetGroup(id uuid.UUID) (*models.Group, error) {
	var group models.Group
	ok, err := s.load(groupKey(id), &group)
	if err != nil || !ok {
		return nil, err
	}
	return &group, nil
}

// FindGroupBySAMAccountName looks up a group through the SAM index.
func (s *Service) FindGroupBySAMAccountName(sam string) (*models.Group, error) {
	var id uuid.UUID
	ok, err := s.load(samIndexKey(sam), &id)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetGroup(id)
}

// AddMemberToGroup adds userID to group's membership if not already present.
func (s *Service) AddMemberToGroup(groupID, userID uuid.UUID) error {
	group, err := s.GetGroup(groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return notFound("group not found")
	}
	if group.HasMember(userID) {
		return nil
	}

	group.Members = append(group.Members, userID)
	if err := s.store(groupKey(group.ID), group); err != nil {
		return err
	}
	if err := s.addMemberToIndex(userID, group.ID); err != nil {
		return err
	}
	s.logAction("add_member_to_group", fmt.Sprintf("group:%s user:%s", group.SAMAccountName, userID), &userID)
	return nil
}

// RemoveMemberFromGroup removes userID from group's membership.
func (s *Service) RemoveMemberFromGroup(groupID, userID uuid.UUID) error {
	group, err := s.GetGroup(groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return notFound("group not found")
	}
	if !group.HasMember(userID) {
		return nil
	}

	members := group.Members[:0]
	for _, m := range group.Members {
		if m != userID {
			members = append(members, m)
		}
	}
	group.Members = members
	if err := s.store(groupKey(group.ID), group); err != nil {
		return err
	}
	if err := s.removeMemberFromIndex(userID, group.ID); err != nil {
		return err
	}
	s.logAction("remove_member_from_group", fmt.Sprintf("group:%s user:%s", group.SAMAccountName, userID), &userID)
	return nil
}

// DeleteGroup removes group, its SAM index entry, and its membership index
// entries.
func (s *Service) DeleteGroup(groupID uuid.UUID) error {
	group, err := s.GetGroup(groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return notFound("group not found")
	}

	var allGroups []uuid.UUID
	if _, err := s.load(allGroupsIndexKey, &allGroups); err != nil {
		return err
	}
	allGroups = removeUUID(allGroups, groupID)
	if err := s.store(allGroupsIndexKey, allGroups); err != nil {
		return err
	}

	for _, memberID := range group.Members {
		if err := s.removeMemberFromIndex(memberID, group.ID); err != nil {
			return err
		}
	}

	if _, err := s.db.Remove(groupKey(groupID)); err != nil {
		return dbErr(err)
	}
	if _, err := s.db.Remove(samIndexKey(group.SAMAccountName)); err != nil {
		return dbErr(err)
	}

	s.logAction("delete_group", "group:"+group.SAMAccountName, nil)
	return nil
}

// FindGroupsByMember returns every group userID belongs to, via the
// membership index.
func (s *Service) FindGroupsByMember(userID uuid.UUID) ([]models.Group, error) {
	var ids []uuid.UUID
	if _, err := s.load(memberIndexKey(userID), &ids); err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGroup(id)
		if err != nil {
			return nil, err
		}
		if g != nil {
			groups = append(groups, *g)
		}
	}
	return groups, nil
}

// GetAllGroups returns every group known to the directory.
func (s *Service) GetAllGroups() ([]models.Group, error) {
	var ids []uuid.UUID
	if _, err := s.load(allGroupsIndexKey, &ids); err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GetGroup(id)
		if err != nil {
			return nil, err
		}
		if g != nil {
			groups = append(groups, *g)
		}
	}
	return groups, nil
}

// FindGroupByRID scans every group for one whose derived RID matches rid.
func (s *Service) FindGroupByRID(rid uint32) (*models.Group, error) {
	var ids []uuid.UUID
	if _, err := s.load(allGroupsIndexKey, &ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		g, err := s.GetGroup(id)
		if err != nil {
			return nil, err
		}
		if g != nil && g.GetRID() == rid {
			return g, nil
		}
	}
	return nil, nil
}

func (s *Service) addMemberToIndex(userID, groupID uuid.UUID) error {
	key := memberIndexKey(userID)
	var ids []uuid.UUID
	if _, err := s.load(key, &ids); err != nil {
		return err
	}
	if containsUUID(ids, groupID) {
		return nil
	}
	ids = append(ids, groupID)
	return s.store(key, ids)
}

func (s *Service) removeMemberFromIndex(userID, groupID uuid.UUID) error {
	key := memberIndexKey(userID)
	var ids []uuid.UUID
	if _, err := s.load(key, &ids); err != nil {
		return err
	}
	ids = removeUUID(ids, groupID)
	return s.store(key, ids)
}
