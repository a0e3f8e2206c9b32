package directory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nextdomen/mextdomen/internal/models"
)

func domainKey(id uuid.UUID) string   { return "domain:" + id.String() }
func dnsIndexKey(dns string) string   { return "dns_index:" + dns }

const allDomainsIndexKey = "all_domains_index"

// CreateDomain stores domain, rejecting a DNS name collision with a
// different domain, and records it in the all-domains index. Supplements
// the reference implementation, whose domain_controller.rs calls a
// bootstrap_domain/find_domain_by_dns pair with no corresponding
// DirectoryService methods in the read source.
func (s *Service) CreateDomain(domain *models.Domain) error {
	if existing, err := s.FindDomainByDNS(domain.DNSName); err != nil {
		return err
	} else if existing != nil && existing.ID != domain.ID {
		return alreadyExists(fmt.Sprintf("domain %s already exists", domain.DNSName))
	}

	if err := s.store(domainKey(domain.ID), domain); err != nil {
		return err
	}
	if err := s.store(dnsIndexKey(strings.ToLower(domain.DNSName)), domain.ID); err != nil {
		return err
	}

	var allDomains []uuid.UUID
	if _, err := s.load(allDomainsIndexKey, &allDomains); err != nil {
		return err
	}
	if !containsUUID(allDomains, domain.ID) {
		allDomains = append(allDomains, domain.ID)
		if err := s.store(allDomainsIndexKey, allDomains); err != nil {
			return err
		}
	}

	s.logAction("create_domain", "dns:"+domain.DNSName, nil)
	return nil
}

// GetDomain returns the domain with id, or (nil, nil) if absent.
func (s *Service) GetDomain(id uuid.UUID) (*models.Domain, error) {
	var domain models.Domain
	ok, err := s.load(domainKey(id), &domain)
	if err != nil || !ok {
		return nil, err
	}
	return &domain, nil
}

// FindDomainByDNS looks up a domain through the DNS-name index,
// case-insensitively.
func (s *Service) FindDomainByDNS(dnsName string) (*models.Domain, error) {
	var id uuid.UUID
	ok, err := s.load(dnsIndexKey(strings.ToLower(dnsName)), &id)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetDomain(id)
}

// GetAllDomains returns every domain known to the directory.
func (s *Service) GetAllDomains() ([]models.Domain, error) {
	var ids []uuid.UUID
	if _, err := s.load(allDomainsIndexKey, &ids); err != nil {
		return nil, err
	}
	domains := make([]models.Domain, 0, len(ids))
	for _, id := range ids {
		d, err := s.GetDomain(id)
		if err != nil {
			return nil, err
		}
		if d != nil {
			domains = append(domains, *d)
		}
	}
	return domains, nil
}

// GenerateUserDN renders the DN a user would have within domain.
func GenerateUserDN(user *models.User, domain *models.Domain) string {
	return fmt.Sprintf("CN=%s,%s", user.Username, domain.DN())
}

// GenerateOUDN renders the DN an OU named name would have under parent (or
// at the root, if parent is empty).
func GenerateOUDN(name, parent string) string {
	if parent == "" {
		return "OU=" + name
	}
	return "OU=" + name + "," + parent
}
