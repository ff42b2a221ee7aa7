// Package permissions decides who may do what, using a Casbin RBAC model with
// the role chain anonymous < authenticated < owner < staff.
package permissions

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"eventhub-api/models"
	"eventhub-api/utils"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

type Role string

const (
	Anonymous     Role = "anonymous"
	Authenticated Role = "authenticated"
	Owner         Role = "owner"
	Staff         Role = "staff"
)

// Resources
const (
	ResourceActivity = "activity"
	ResourceEvent    = "event"
	ResourceComment  = "comment"
	ResourceUser     = "user"
	ResourceAuth     = "auth"
)

// NoOwner is passed for collection-level actions.
const NoOwner uint = 0

type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Enforcer{enforcer: enforcer}, nil
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// RoleFor resolves the caller's role against an object owned by ownerID.
func RoleFor(user *models.User, ownerID uint) Role {
	switch {
	case user == nil:
		return Anonymous
	case user.IsStaff:
		return Staff
	case ownerID != NoOwner && user.ID == ownerID:
		return Owner
	default:
		return Authenticated
	}
}

func (e *Enforcer) Allowed(role Role, resource, action string) (bool, error) {
	ok, err := e.enforcer.Enforce(string(role), resource, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return ok, nil
}

// Authorize returns nil when user may perform action on resource. Anonymous
// callers are told to authenticate; everyone else is refused.
func (e *Enforcer) Authorize(user *models.User, ownerID uint, resource, action string) error {
	role := RoleFor(user, ownerID)
	ok, err := e.Allowed(role, resource, action)
	if err != nil {
		return utils.NewInternal("Authorization check failed", err)
	}
	if ok {
		return nil
	}
	if role == Anonymous {
		return utils.NewUnauthenticated("Authentication credentials were not provided.")
	}
	return utils.NewPermissionDenied("You do not have permission to perform this action.")
}
