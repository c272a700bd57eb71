package core

import (
	"context"
	"sort"
	"strings"

	"casefile/internal/auth"
	"casefile/pkg/domain"
)

// UserInput carries the fields needed to provision an account. The role is
// referenced by name; the password is hashed before storage.
type UserInput struct {
	Name        string
	Email       string
	Phone       string
	District    string
	RoleName    string
	BadgeNumber *string
	Department  *string
	Password    string
}

// CitizenInput carries the self-registration fields for complainant
// accounts. The citizen role is applied unconditionally.
type CitizenInput struct {
	Name     string
	Email    string
	Phone    string
	District string
	Password string
}

// CreateRole persists a new role definition.
func (s *Service) CreateRole(ctx context.Context, role Role) (Role, Result, error) {
	var (
		stored Role
		res    Result
	)
	err := s.run(ctx, "create_role", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, domain.PermUserManage); err != nil {
			return "", err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			stored, err = tx.CreateRole(role)
			return err
		})
		return stored.ID, txErr
	})
	return stored, res, err
}

// UpdateRole mutates a role definition using the provided mutator.
func (s *Service) UpdateRole(ctx context.Context, id string, mutator func(*Role) error) (Role, Result, error) {
	var (
		revised Role
		res     Result
	)
	err := s.run(ctx, "update_role", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, domain.PermUserManage); err != nil {
			return id, err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			revised, err = tx.UpdateRole(id, mutator)
			return err
		})
		return id, txErr
	})
	return revised, res, err
}

// ListRoles returns the role definitions ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	err := s.run(ctx, "list_roles", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, domain.PermUserManage); err != nil {
			return "", err
		}
		roles = s.store.ListRoles()
		sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
		return "", nil
	})
	return roles, err
}

// RegisterUser provisions an account with the named role. Officer-grade
// accounts carry badge and department.
func (s *Service) RegisterUser(ctx context.Context, input UserInput) (User, Result, error) {
	var (
		account User
		res     Result
	)
	err := s.run(ctx, "register_user", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, domain.PermUserManage); err != nil {
			return "", err
		}
		var txErr error
		account, res, txErr = s.createAccount(ctx, input)
		return account.ID, txErr
	})
	return account, res, err
}

// RegisterCitizen self-registers a complainant account. No acting user is
// required; the citizen role is forced.
func (s *Service) RegisterCitizen(ctx context.Context, input CitizenInput) (User, Result, error) {
	var (
		citizen User
		res     Result
	)
	err := s.run(ctx, "register_citizen", func(ctx context.Context) (string, error) {
		var txErr error
		citizen, res, txErr = s.createAccount(ctx, UserInput{
			Name:     input.Name,
			Email:    input.Email,
			Phone:    input.Phone,
			District: input.District,
			RoleName: RoleCitizen,
			Password: input.Password,
		})
		return citizen.ID, txErr
	})
	return citizen, res, err
}

func (s *Service) createAccount(ctx context.Context, input UserInput) (User, Result, error) {
	role, ok := s.store.FindRoleByName(input.RoleName)
	if !ok {
		return User{}, Result{}, ErrNotFound{Entity: "role", ID: input.RoleName}
	}
	if strings.TrimSpace(input.Email) == "" {
		return User{}, Result{}, ValidationError{Field: "email", Reason: "required"}
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return User{}, Result{}, ValidationError{Field: "password", Reason: err.Error()}
	}
	var user User
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		user, err = tx.CreateUser(User{
			Name:         strings.TrimSpace(input.Name),
			Email:        strings.TrimSpace(input.Email),
			Phone:        strings.TrimSpace(input.Phone),
			District:     strings.TrimSpace(input.District),
			RoleID:       role.ID,
			BadgeNumber:  input.BadgeNumber,
			Department:   input.Department,
			PasswordHash: hash,
			Active:       true,
		})
		return err
	})
	return user, res, err
}

// Authenticate verifies an email and password pair and returns the account.
// Unknown accounts, wrong passwords, and deactivated accounts all produce
// ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	var user User
	err := s.run(ctx, "authenticate", func(ctx context.Context) (string, error) {
		found, ok := s.store.FindUserByEmail(email)
		if !ok {
			return "", ErrInvalidCredentials
		}
		if !auth.VerifyPassword(found.PasswordHash, password) {
			return "", ErrInvalidCredentials
		}
		if !found.Active {
			return "", ErrInvalidCredentials
		}
		user = found
		return found.ID, nil
	})
	return user, err
}

// UpdateUser mutates an account using the provided mutator.
func (s *Service) UpdateUser(ctx context.Context, id string, mutator func(*User) error) (User, Result, error) {
	var (
		patched User
		res     Result
	)
	err := s.run(ctx, "update_user", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, domain.PermUserManage); err != nil {
			return id, err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			patched, err = tx.UpdateUser(id, mutator)
			return err
		})
		return id, txErr
	})
	return patched, res, err
}

// DeactivateUser disables an account. Deactivation is the soft removal
// path: rows persist so historical references stay intact.
func (s *Service) DeactivateUser(ctx context.Context, id string) (User, Result, error) {
	var (
		disabled User
		res      Result
	)
	err := s.run(ctx, "deactivate_user", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, domain.PermUserManage); err != nil {
			return id, err
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			disabled, err = tx.UpdateUser(id, func(u *User) error {
				u.Active = false
				return nil
			})
			return err
		})
		return id, txErr
	})
	return disabled, res, err
}

// GetUser returns an account. Administrators reach any account; other
// actors only their own.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	err := s.run(ctx, "get_user", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, "")
		if err != nil {
			return id, err
		}
		if actor.ID != id && !role.Allows(domain.PermUserManage) {
			return id, PermissionError{Actor: actor.ID, Permission: domain.PermUserManage}
		}
		found, ok := s.store.GetUser(id)
		if !ok {
			return id, ErrNotFound{Entity: "user", ID: id}
		}
		user = found
		return id, nil
	})
	return user, err
}

// ListUsers returns all accounts ordered by name.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := s.run(ctx, "list_users", func(ctx context.Context) (string, error) {
		if _, _, err := s.requireActor(ctx, domain.PermUserManage); err != nil {
			return "", err
		}
		users = s.store.ListUsers()
		sort.Slice(users, func(i, j int) bool {
			if users[i].Name == users[j].Name {
				return users[i].ID < users[j].ID
			}
			return users[i].Name < users[j].Name
		})
		return "", nil
	})
	return users, err
}
