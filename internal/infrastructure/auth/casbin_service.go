package auth

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// CasbinService owns the RBAC enforcer backing the admin endpoints. Policies
// live in the same database as the rental tables via the GORM adapter.
type CasbinService struct {
	E *casbin.Enforcer
}

// NewCasbinService builds an enforcer from the model file and the policy
// rows stored in the database.
func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(modelPath, adp)
	if err != nil {
		return nil, err
	}
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return &CasbinService{E: enforcer}, nil
}

// AddPolicy implements domain.PolicyService
func (s *CasbinService) AddPolicy(role, resource, action string) error {
	if _, err := s.E.AddPolicy(role, resource, action); err != nil {
		return err
	}
	return s.E.SavePolicy()
}

// RemovePolicy implements domain.PolicyService
func (s *CasbinService) RemovePolicy(role, resource, action string) error {
	if _, err := s.E.RemovePolicy(role, resource, action); err != nil {
		return err
	}
	return s.E.SavePolicy()
}

// CheckPermission implements domain.PolicyService
func (s *CasbinService) CheckPermission(role, resource, action string) (bool, error) {
	return s.E.Enforce(role, resource, action)
}

// GetPolicies implements domain.PolicyService
func (s *CasbinService) GetPolicies() [][]string {
	policies, err := s.E.GetPolicy()
	if err != nil {
		return nil
	}
	return policies
}
