package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/nextdomen/mextdomen/internal/models"
)

func ouKey(id uuid.UUID) string  { return "ou:" + id.String() }
func dnIndexKey(dn string) string { return "dn_index:" + dn }

const allOUsIndexKey = "all_ous_index"

// CreateOU stores ou, indexes it by DN, and records it in the all-OUs index.
func (s *Service) CreateOU(ou *models.OrganizationalUnit) error {
	if err := s.store(ouKey(ou.ID), ou); err != nil {
		return err
	}
	if err := s.store(dnIndexKey(ou.DN), ou.ID); err != nil {
		return err
	}

	var allOUs []uuid.UUID
	if _, err := s.load(allOUsIndexKey, &allOUs); err != nil {
		return err
	}
	if !containsUUID(allOUs, ou.ID) {
		allOUs = append(allOUs, ou.ID)
		if err := s.store(allOUsIndexKey, allOUs); err != nil {
			return err
		}
	}

	s.logAction("create_ou", "ou:"+ou.DN, nil)
	return nil
}

// GetOU returns the OU with id, or (nil, nil) if absent.
func (s *Service) GetOU(id uuid.UUID) (*models.OrganizationalUnit, error) {
	var ou models.OrganizationalUnit
	ok, err := s.load(ouKey(id), &ou)
	if err != nil || !ok {
		return nil, err
	}
	return &ou, nil
}

// FindOUByDN looks up an OU through the DN index.
func (s *Service) FindOUByDN(dn string) (*models.OrganizationalUnit, error) {
	var id uuid.UUID
	ok, err := s.load(dnIndexKey(dn), &id)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetOU(id)
}

// GetAllOUs returns every OU known to the directory.
func (s *Service) GetAllOUs() ([]models.OrganizationalUnit, error) {
	var ids []uuid.UUID
	if _, err := s.load(allOUsIndexKey, &ids); err != nil {
		return nil, err
	}
	ous := make([]models.OrganizationalUnit, 0, len(ids))
	for _, id := range ids {
		ou, err := s.GetOU(id)
		if err != nil {
			return nil, err
		}
		if ou != nil {
			ous = append(ous, *ou)
		}
	}
	return ous, nil
}

// DeleteOU removes ou and its DN index entry.
func (s *Service) DeleteOU(ouID uuid.UUID) error {
	ou, err := s.GetOU(ouID)
	if err != nil {
		return err
	}
	if ou == nil {
		return notFound("OU not found")
	}

	var allOUs []uuid.UUID
	if _, err := s.load(allOUsIndexKey, &allOUs); err != nil {
		return err
	}
	allOUs = removeUUID(allOUs, ouID)
	if err := s.store(allOUsIndexKey, allOUs); err != nil {
		return err
	}

	if _, err := s.db.Remove(ouKey(ouID)); err != nil {
		return dbErr(err)
	}
	if _, err := s.db.Remove(dnIndexKey(ou.DN)); err != nil {
		return dbErr(err)
	}

	s.logAction("delete_ou", "ou:"+ou.DN, nil)
	return nil
}

// SetBlockInheritance flips an OU's block-inheritance flag and refreshes its
// derived GPOptions projection field.
func (s *Service) SetBlockInheritance(ouID uuid.UUID, block bool) error {
	ou, err := s.GetOU(ouID)
	if err != nil {
		return err
	}
	if ou == nil {
		return notFound("OU not found")
	}

	ou.BlockInheritance = block
	ou.UpdateGPOptions()
	ou.UpdatedAt = time.Now().UTC()
	if err := s.store(ouKey(ou.ID), ou); err != nil {
		return err
	}

	s.logAction("set_block_inheritance", "ou:"+ouID.String(), nil)
	return nil
}

// SetGPOEnforced flips an OU's own enforced flag (distinct from a linked
// GPO's own Enforced field) and refreshes its derived GPLink projection.
func (s *Service) SetGPOEnforced(ouID uuid.UUID, enforced bool) error {
	ou, err := s.GetOU(ouID)
	if err != nil {
		return err
	}
	if ou == nil {
		return notFound("OU not found")
	}

	ou.Enforced = enforced
	ou.UpdateGPLink()
	ou.UpdatedAt = time.Now().UTC()
	if err := s.store(ouKey(ou.ID), ou); err != nil {
		return err
	}

	s.logAction("set_gpo_enforced", "ou:"+ouID.String(), nil)
	return nil
}
