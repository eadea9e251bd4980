// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/taibuivan/shopcore/internal/platform/constants"
	"github.com/taibuivan/shopcore/internal/platform/ctxutil"
	"github.com/taibuivan/shopcore/internal/platform/dberr"
	"github.com/taibuivan/shopcore/internal/platform/sec"
	"github.com/taibuivan/shopcore/internal/platform/validate"
	"github.com/taibuivan/shopcore/pkg/uuid"
)

// # Admin Provisioning

// ProvisioningService registers admin-seat holders.
//
// At most [constants.MaxAdminSeats] identities hold role admin or subadmin.
// The first seat gets admin, later seats get subadmin.
type ProvisioningService struct {
	credentials CredentialStore
	hasher      sec.PasswordHasher
	options     Options
}

// NewProvisioningService constructs a new [ProvisioningService].
func NewProvisioningService(credentials CredentialStore, hasher sec.PasswordHasher, options Options) *ProvisioningService {
	return &ProvisioningService{
		credentials: credentials,
		hasher:      hasher,
		options:     options.withDefaults(),
	}
}

// ProvisionInput holds the data required to register an admin.
type ProvisionInput struct {
	Name     string
	Email    string
	Password string
}

// ProvisionResult is the public view of a freshly provisioned admin.
type ProvisionResult struct {
	ID    string       `json:"id"`
	Email string       `json:"email"`
	Role  sec.UserRole `json:"role"`
}

/*
ProvisionAdmin registers a new admin-seat holder.

Description: Rejects a taken email and a full seat table before paying for
bcrypt, then hands the insert to CredentialStore.CreatePrivileged, which
re-checks the cap and assigns the role atomically. Losing a race at the cap
surfaces as ErrSeatLimitExceeded and losing a race on the email as
ErrDuplicateIdentity.

Parameters:
  - context: context.Context
  - input: ProvisionInput

Returns:
  - *ProvisionResult: Created identity
  - error: ErrDuplicateIdentity, ErrSeatLimitExceeded or internal failures
*/
func (service *ProvisioningService) ProvisionAdmin(context context.Context, input ProvisionInput) (*ProvisionResult, error) {
	result, err := service.provision(context, input)
	service.options.observe(OperationProvision, err)
	return result, err
}

func (service *ProvisioningService) provision(context context.Context, input ProvisionInput) (*ProvisionResult, error) {
	email := validate.NormalizeEmail(input.Email)

	storeContext, cancel := bounded(context, service.options.StoreTimeout)
	_, err := service.credentials.FindByEmail(storeContext, email)
	cancel()

	switch {
	case err == nil:
		return nil, ErrDuplicateIdentity
	case !isNotFound(err):
		return nil, fmt.Errorf("auth_service_provision_lookup_failed: %w", err)
	}

	storeContext, cancel = bounded(context, service.options.StoreTimeout)
	seats, err := service.credentials.CountByRoles(storeContext, sec.PrivilegedRoles...)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("auth_service_provision_count_failed: %w", err)
	}
	if seats >= constants.MaxAdminSeats {
		return nil, ErrSeatLimitExceeded
	}

	digest, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:             uuid.New(),
		Name:           input.Name,
		Email:          email,
		PasswordDigest: digest,
	}

	storeContext, cancel = bounded(context, service.options.StoreTimeout)
	err = service.credentials.CreatePrivileged(storeContext, user, constants.MaxAdminSeats)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, ErrSeatLimitExceeded):
		return nil, ErrSeatLimitExceeded
	case errors.Is(err, dberr.ErrConflict):
		return nil, ErrDuplicateIdentity
	default:
		return nil, fmt.Errorf("auth_service_provision_failed: %w", err)
	}

	ctxutil.GetLogger(context).Info("admin_provisioned", "user_id", user.ID, "role", user.Role)

	return &ProvisionResult{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// AdminList is the response of [ProvisioningService.ListAdmins].
type AdminList struct {
	Count  int     `json:"count"`
	Admins []*User `json:"admins"`
}

/*
ListAdmins returns every admin-seat holder, oldest first.

Parameters:
  - context: context.Context

Returns:
  - *AdminList: Seat holders and their count
  - error: Storage failures
*/
func (service *ProvisioningService) ListAdmins(context context.Context) (*AdminList, error) {
	storeContext, cancel := bounded(context, service.options.StoreTimeout)
	defer cancel()

	admins, err := service.credentials.ListByRoles(storeContext, sec.PrivilegedRoles...)
	if err != nil {
		return nil, fmt.Errorf("auth_service_list_admins_failed: %w", err)
	}
	return &AdminList{Count: len(admins), Admins: admins}, nil
}
