package account

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/classpath/backend/core"
)

var (
	// errors
	ErrNotFound                 = errors.New("not found")
	ErrRegistrationNumberExists = errors.New("a user with this registration number already exists")
	ErrEmailExists              = errors.New("a user with this email already exists")
	ErrCPFExists                = errors.New("a profile with this CPF already exists")
	ErrProfileExists            = errors.New("user already has a profile")
	ErrProfileRequired          = errors.New("a completed profile is required")
	ErrPermissionDenied         = errors.New("permission denied")
	errUnknownClass             = errors.New("class not found")
	errUnknownInstitution       = errors.New("institution not found")
)

type (
	Repository interface {
		CheckUserUniqueness(ctx context.Context, regNum, email string, excludedUsers ...User) error
		CheckCPFUniqueness(ctx context.Context, cpf string, excludedProfiles ...Profile) error

		// CreateAccount persists the User and its Profile subtype in one
		// transaction; both rows exist afterwards or neither does.
		CreateAccount(ctx context.Context, usr User, prof *Profile) (User, *Profile, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		GetUserInScope(ctx context.Context, scope UserScope, id string) (User, error)
		QueryUsers(ctx context.Context, scope UserScope, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)

		// AttachProfile inserts the profile and sets the matching role flag
		// on the owning User in one transaction.
		AttachProfile(ctx context.Context, prof Profile) (Profile, error)
		GetProfileByUserID(ctx context.Context, userID string) (Profile, error)
		GetProfile(ctx context.Context, scope ProfileScope, id string) (Profile, error)
		QueryProfiles(ctx context.Context, scope ProfileScope) ([]Profile, error)
		UpdateProfile(ctx context.Context, prof Profile) (Profile, error)
		// DeleteProfilesByID also removes owned addresses and clears the
		// owning User's role flag.
		DeleteProfilesByID(ctx context.Context, ids ...string) (int, error)

		GetAddress(ctx context.Context, scope AddressScope, id string) (Address, error)
		QueryAddresses(ctx context.Context, scope AddressScope) ([]Address, error)
		CreateAddress(ctx context.Context, addr Address) (Address, error)
		UpdateAddress(ctx context.Context, addr Address) (Address, error)
		DeleteAddressesByID(ctx context.Context, scope AddressScope, ids ...string) (int, error)
	}

	// ReferenceChecker resolves foreign references owned by the school domain.
	ReferenceChecker interface {
		ClassExists(ctx context.Context, id string) (bool, error)
		ClassInstitutionID(ctx context.Context, id string) (string, error)
		InstitutionExists(ctx context.Context, id string) (bool, error)
	}

	Service struct {
		repo    Repository
		refs    ReferenceChecker
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, refs ReferenceChecker, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		refs:    refs,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

// checkUniqueness maps repository uniqueness errors to field-attributed
// conflict errors.
func (svc *Service) checkUniqueness(ctx context.Context, regNum, email, cpf string, exclUsers []User, exclProfs []Profile) error {
	if err := svc.repo.CheckUserUniqueness(ctx, regNum, email, exclUsers...); err != nil {
		switch errors.Cause(err) {
		case ErrRegistrationNumberExists:
			return core.NewConflictError(err, "registration_number")
		case ErrEmailExists:
			return core.NewConflictError(err, "email")
		}
		return err
	}
	if cpf != "" {
		if err := svc.repo.CheckCPFUniqueness(ctx, cpf, exclProfs...); err != nil {
			if errors.Cause(err) == ErrCPFExists {
				return core.NewConflictError(err, "cpf")
			}
			return err
		}
	}
	return nil
}

// checkReferences validates the role-specific foreign reference of a new
// account against the school domain.
func (svc *Service) checkReferences(ctx context.Context, role Role, classID, institutionID string) error {
	switch role {
	case RoleStudent:
		ok, err := svc.refs.ClassExists(ctx, classID)
		if err != nil {
			return errors.Wrap(err, "checking class")
		}
		if !ok {
			return core.NewValidationError(errUnknownClass, core.FieldError{Field: "class_id", Error: errUnknownClass.Error()})
		}
	case RoleTeacher, RoleAdmin:
		if institutionID == "" {
			return nil // assigned later (admins create their institution afterwards)
		}
		ok, err := svc.refs.InstitutionExists(ctx, institutionID)
		if err != nil {
			return errors.Wrap(err, "checking institution")
		}
		if !ok {
			return core.NewValidationError(errUnknownInstitution, core.FieldError{Field: "institution", Error: errUnknownInstitution.Error()})
		}
	}
	return nil
}

// CreateAccount persists a new User and, when a role flag is set, its
// Profile subtype, atomically. The caller receives the resolved identity;
// the auth token is issued by the API layer and only on creation.
func (svc *Service) CreateAccount(ctx context.Context, na NewAccount) (Resolved, error) {
	if err := svc.checkUniqueness(ctx, na.RegistrationNumber, na.Email, na.CPF, nil, nil); err != nil {
		return Resolved{}, err
	}

	now := time.Now().UTC()
	usr := User{
		RegistrationNumber: na.RegistrationNumber,
		Email:              na.Email,
		IsStudent:          na.IsStudent,
		IsTeacher:          na.IsTeacher,
		IsAdmin:            na.IsAdmin,
		CreatedAt:          now,
		ModifiedAt:         now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(na.Password); err != nil {
		return Resolved{}, errors.Wrap(err, "hashing password")
	}

	var prof *Profile
	if role, flagged := na.Role(); flagged {
		if err := svc.checkReferences(ctx, role, na.ClassID, na.InstitutionID); err != nil {
			return Resolved{}, err
		}
		prof = &Profile{
			Role:        role,
			CPF:         na.CPF,
			FullName:    na.FullName,
			Description: na.Description,
			CreatedAt:   now,
			ModifiedAt:  now,
		}
		switch role {
		case RoleStudent:
			prof.ClassID = na.ClassID
		case RoleTeacher, RoleAdmin:
			prof.InstitutionID = na.InstitutionID
		}
	}

	usr, prof, err := svc.repo.CreateAccount(ctx, usr, prof)
	if err != nil {
		return Resolved{}, errors.Wrap(err, "creating account")
	}

	svc.sendWelcomeEmail(usr)
	return Resolved{User: usr, Profile: prof}, nil
}

func (svc *Service) sendWelcomeEmail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: usr.Email}},
		Subject: "Welcome!",
		BodyStr: fmt.Sprintf(
			"Welcome to %s!\n\nYour account %s is ready. Sign in at %s to complete your profile.",
			svc.conf.AppName, usr.RegistrationNumber, svc.conf.FrontendBaseURL,
		),
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByRegistrationNumber(ctx context.Context, regNum string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{RegistrationNumber: core.CleanString(regNum, true /* lower */)})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}

// QueryUsers lists the Users visible to the caller per their scope.
func (svc *Service) QueryUsers(ctx context.Context, caller Resolved, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	scope := ScopeUsers(caller)
	if scope.IsEmpty() {
		return []User{}, nil
	}
	return svc.repo.QueryUsers(ctx, scope, filter, ordering)
}

// GetUserScoped fetches a single User; rows outside the caller's scope
// read as absent.
func (svc *Service) GetUserScoped(ctx context.Context, caller Resolved, id string) (User, error) {
	return svc.repo.GetUserInScope(ctx, ScopeUsers(caller), id)
}

// UpdateUserAccount modifies a User. Callers may update themselves;
// admins may update any user in their scope. Only admins may change
// IsActive.
func (svc *Service) UpdateUserAccount(ctx context.Context, caller Resolved, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}

	self := caller.User.ID == id
	if !self {
		if !caller.IsAdmin() {
			return User{}, ErrPermissionDenied
		}
		if _, err = svc.repo.GetUserInScope(ctx, ScopeUsers(caller), id); err != nil {
			if errors.Cause(err) == ErrNotFound {
				return User{}, ErrPermissionDenied
			}
			return User{}, err
		}
	}
	if uu.IsActive != nil && !caller.IsAdmin() {
		return User{}, ErrPermissionDenied
	}

	if err = svc.checkUniqueness(ctx, usr.RegistrationNumber, uu.Email, "", []User{usr}, nil); err != nil {
		return User{}, err
	}

	usr.Email = uu.Email
	usr.ModifiedAt = time.Now().UTC()
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

// DeleteUsers removes users. Admin only; every target must exist and lie
// within the admin's scope; self-deletion is refused.
func (svc *Service) DeleteUsers(ctx context.Context, caller Resolved, ids ...string) error {
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	scope := ScopeUsers(caller)
	for _, id := range ids {
		if id == caller.User.ID {
			return ErrPermissionDenied
		}
		if _, err := svc.repo.GetUser(ctx, GetFilter{ID: id}); err != nil {
			return err
		}
		if _, err := svc.repo.GetUserInScope(ctx, scope, id); err != nil {
			if errors.Cause(err) == ErrNotFound {
				return ErrPermissionDenied
			}
			return err
		}
	}
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return err
}

// QueryProfiles lists Teacher or Student profiles in the admin's
// institution. Admin only.
func (svc *Service) QueryProfiles(ctx context.Context, caller Resolved, role Role) ([]Profile, error) {
	if !caller.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	scope := ScopeProfiles(caller, role)
	if scope.IsEmpty() {
		return []Profile{}, nil
	}
	return svc.repo.QueryProfiles(ctx, scope)
}

// GetProfileScoped fetches a single Teacher or Student profile in the
// admin's institution; out-of-scope rows read as absent.
func (svc *Service) GetProfileScoped(ctx context.Context, caller Resolved, role Role, id string) (Profile, error) {
	if !caller.IsAdmin() {
		return Profile{}, ErrPermissionDenied
	}
	scope := ScopeProfiles(caller, role)
	if scope.IsEmpty() {
		return Profile{}, ErrNotFound
	}
	return svc.repo.GetProfile(ctx, scope, id)
}

// CreateTeacher attaches a Teacher profile to an existing User. The
// teacher's institution is inherited from the calling admin; this second
// write is part of the operation's contract.
func (svc *Service) CreateTeacher(ctx context.Context, caller Resolved, np NewProfile) (Profile, error) {
	if !caller.IsAdmin() || caller.Profile.InstitutionID == "" {
		return Profile{}, ErrPermissionDenied
	}
	prof := Profile{
		UserID:        np.UserID,
		Role:          RoleTeacher,
		CPF:           np.CPF,
		FullName:      np.FullName,
		Description:   np.Description,
		InstitutionID: caller.Profile.InstitutionID,
	}
	return svc.attachProfile(ctx, prof)
}

// CreateStudent attaches a Student profile to an existing User. The class
// must belong to the calling admin's institution.
func (svc *Service) CreateStudent(ctx context.Context, caller Resolved, np NewProfile) (Profile, error) {
	if !caller.IsAdmin() || caller.Profile.InstitutionID == "" {
		return Profile{}, ErrPermissionDenied
	}
	if np.ClassID == "" {
		return Profile{}, core.NewValidationError(errUnknownClass, core.FieldError{Field: "class_id", Error: classRequiredText})
	}
	ok, err := svc.refs.ClassExists(ctx, np.ClassID)
	if err != nil {
		return Profile{}, errors.Wrap(err, "checking class")
	}
	if !ok {
		return Profile{}, core.NewValidationError(errUnknownClass, core.FieldError{Field: "class_id", Error: errUnknownClass.Error()})
	}
	instID, err := svc.refs.ClassInstitutionID(ctx, np.ClassID)
	if err != nil {
		return Profile{}, errors.Wrap(err, "checking class")
	}
	if instID != caller.Profile.InstitutionID {
		return Profile{}, ErrPermissionDenied
	}
	prof := Profile{
		UserID:      np.UserID,
		Role:        RoleStudent,
		CPF:         np.CPF,
		FullName:    np.FullName,
		Description: np.Description,
		ClassID:     np.ClassID,
	}
	return svc.attachProfile(ctx, prof)
}

func (svc *Service) attachProfile(ctx context.Context, prof Profile) (Profile, error) {
	if _, err := svc.repo.GetUser(ctx, GetFilter{ID: prof.UserID}); err != nil {
		return Profile{}, err
	}
	if _, err := svc.repo.GetProfileByUserID(ctx, prof.UserID); err == nil {
		return Profile{}, core.NewConflictError(ErrProfileExists, "user")
	} else if errors.Cause(err) != ErrNotFound {
		return Profile{}, errors.Wrap(err, "checking existing profile")
	}
	if err := svc.repo.CheckCPFUniqueness(ctx, prof.CPF); err != nil {
		if errors.Cause(err) == ErrCPFExists {
			return Profile{}, core.NewConflictError(err, "cpf")
		}
		return Profile{}, err
	}

	now := time.Now().UTC()
	prof.CreatedAt = now
	prof.ModifiedAt = now
	return svc.repo.AttachProfile(ctx, prof)
}

// UpdateProfileScoped modifies a Teacher or Student profile in the
// admin's institution; out-of-scope targets are refused.
func (svc *Service) UpdateProfileScoped(ctx context.Context, caller Resolved, role Role, id string, up UpdateProfile) (Profile, error) {
	if !caller.IsAdmin() {
		return Profile{}, ErrPermissionDenied
	}
	prof, err := svc.repo.GetProfile(ctx, AllProfiles(), id)
	if err != nil {
		return Profile{}, err
	}
	if prof.Role != role {
		return Profile{}, ErrNotFound
	}
	scope := ScopeProfiles(caller, role)
	if scope.IsEmpty() {
		return Profile{}, ErrPermissionDenied
	}
	if _, err = svc.repo.GetProfile(ctx, scope, id); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Profile{}, ErrPermissionDenied
		}
		return Profile{}, err
	}
	return svc.updateProfile(ctx, prof, up)
}

// UpdateOwnProfile modifies the caller's own profile fields.
func (svc *Service) UpdateOwnProfile(ctx context.Context, caller Resolved, up UpdateProfile) (Profile, error) {
	if !caller.HasProfile() {
		return Profile{}, ErrNotFound
	}
	return svc.updateProfile(ctx, *caller.Profile, up)
}

func (svc *Service) updateProfile(ctx context.Context, prof Profile, up UpdateProfile) (Profile, error) {
	if up.CPF != prof.CPF {
		if err := svc.repo.CheckCPFUniqueness(ctx, up.CPF, prof); err != nil {
			if errors.Cause(err) == ErrCPFExists {
				return Profile{}, core.NewConflictError(err, "cpf")
			}
			return Profile{}, err
		}
	}
	prof.CPF = up.CPF
	prof.FullName = up.FullName
	prof.Description = up.Description
	prof.ModifiedAt = time.Now().UTC()
	return svc.repo.UpdateProfile(ctx, prof)
}

// DeleteProfiles removes Teacher or Student profiles in the admin's
// institution, cascading to their addresses.
func (svc *Service) DeleteProfiles(ctx context.Context, caller Resolved, role Role, ids ...string) error {
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	scope := ScopeProfiles(caller, role)
	for _, id := range ids {
		if _, err := svc.repo.GetProfile(ctx, AllProfiles(), id); err != nil {
			return err
		}
		if scope.IsEmpty() {
			return ErrPermissionDenied
		}
		if _, err := svc.repo.GetProfile(ctx, scope, id); err != nil {
			if errors.Cause(err) == ErrNotFound {
				return ErrPermissionDenied
			}
			return err
		}
	}
	_, err := svc.repo.DeleteProfilesByID(ctx, ids...)
	return err
}

// Addresses are always self-scoped: the owning profile only.

func (svc *Service) QueryMyAddresses(ctx context.Context, caller Resolved) ([]Address, error) {
	scope := ScopeAddresses(caller)
	if scope.IsEmpty() {
		return []Address{}, nil
	}
	return svc.repo.QueryAddresses(ctx, scope)
}

func (svc *Service) GetMyAddress(ctx context.Context, caller Resolved, id string) (Address, error) {
	scope := ScopeAddresses(caller)
	if scope.IsEmpty() {
		return Address{}, ErrNotFound
	}
	return svc.repo.GetAddress(ctx, scope, id)
}

func (svc *Service) CreateMyAddress(ctx context.Context, caller Resolved, na NewAddress) (Address, error) {
	if !caller.HasProfile() {
		return Address{}, ErrProfileRequired
	}
	now := time.Now().UTC()
	addr := Address{
		ProfileID:    caller.Profile.ID,
		State:        na.State,
		City:         na.City,
		Street:       na.Street,
		Neighborhood: na.Neighborhood,
		Number:       na.Number,
		PostalCode:   na.PostalCode,
		Complement:   na.Complement,
		CreatedAt:    now,
		ModifiedAt:   now,
	}
	return svc.repo.CreateAddress(ctx, addr)
}

func (svc *Service) UpdateMyAddress(ctx context.Context, caller Resolved, id string, ua UpdateAddress) (Address, error) {
	addr, err := svc.GetMyAddress(ctx, caller, id)
	if err != nil {
		return Address{}, err
	}
	if ua.State != "" {
		addr.State = ua.State
	}
	if ua.City != "" {
		addr.City = ua.City
	}
	if ua.Street != "" {
		addr.Street = ua.Street
	}
	if ua.Neighborhood != "" {
		addr.Neighborhood = ua.Neighborhood
	}
	if ua.Number != nil {
		addr.Number = *ua.Number
	}
	if ua.PostalCode != "" {
		addr.PostalCode = ua.PostalCode
	}
	if ua.Complement != nil {
		addr.Complement = *ua.Complement
	}
	addr.ModifiedAt = time.Now().UTC()
	return svc.repo.UpdateAddress(ctx, addr)
}

func (svc *Service) DeleteMyAddresses(ctx context.Context, caller Resolved, ids ...string) error {
	scope := ScopeAddresses(caller)
	if scope.IsEmpty() {
		return ErrNotFound
	}
	for _, id := range ids {
		if _, err := svc.repo.GetAddress(ctx, scope, id); err != nil {
			return err
		}
	}
	_, err := svc.repo.DeleteAddressesByID(ctx, scope, ids...)
	return err
}
