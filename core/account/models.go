package account

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-playground/validator/v10"

	"github.com/classpath/backend/core"
)

// Role is the profile discriminant. It is set exactly once at profile
// creation and never re-derived from the owning User's flags at read time.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

type User struct {
	ID                 string    `json:"id"`
	RegistrationNumber string    `json:"registration_number"`
	Email              string    `json:"email"`
	IsActive           *bool     `json:"is_active"`
	IsStudent          bool      `json:"is_student"`
	IsTeacher          bool      `json:"is_teacher"`
	IsAdmin            bool      `json:"is_admin"`
	PasswordHash       []byte    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`  // UTC
	ModifiedAt         time.Time `json:"modified_at"` // UTC
	LastLogin          time.Time `json:"last_login"`  // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

// RoleFlagCount returns the number of role flags set on the User.
// A consistent User has exactly 0 or 1.
func (u *User) RoleFlagCount() int {
	var n int
	for _, flag := range []bool{u.IsStudent, u.IsTeacher, u.IsAdmin} {
		if flag {
			n++
		}
	}
	return n
}

// FlaggedRole returns the role selected by the User's flags.
// When more than one flag is set, precedence is Student > Teacher > Admin.
// The bool is false when no flag is set.
func (u *User) FlaggedRole() (Role, bool) {
	switch {
	case u.IsStudent:
		return RoleStudent, true
	case u.IsTeacher:
		return RoleTeacher, true
	case u.IsAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Profile is the role-bearing record attached 1:1 to a User.
// ClassID is set for students; InstitutionID for teachers and admins.
type Profile struct {
	ID            string    `json:"id"`
	UserID        string    `json:"-"`
	Role          Role      `json:"role"`
	CPF           string    `json:"cpf"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	ClassID       string    `json:"class_id,omitempty"`
	InstitutionID string    `json:"institution,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
}

type Address struct {
	ID           string    `json:"id"`
	ProfileID    string    `json:"-"`
	State        string    `json:"state"`
	City         string    `json:"city"`
	Street       string    `json:"street"`
	Neighborhood string    `json:"neighborhood"`
	Number       int       `json:"number"`
	PostalCode   string    `json:"postal_code"`
	Complement   string    `json:"complement,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// NewAccount contains information needed to create a User and its
// Profile subtype in one go. At most one role flag may be set; the
// role-specific reference (ClassID for students, InstitutionID for
// teachers/admins) rides along.
type NewAccount struct {
	RegistrationNumber string `json:"registration_number" validate:"required,alphanum_"`
	Email              string `json:"email" validate:"required,email"`
	Password           string `json:"password" validate:"required"`
	ConfirmPassword    string `json:"confirm_password" validate:"required,eqfield=Password"`

	IsStudent bool `json:"is_student"`
	IsTeacher bool `json:"is_teacher"`
	IsAdmin   bool `json:"is_admin"`

	CPF           string `json:"cpf" validate:"omitempty,cpf"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	ClassID       string `json:"class_id"`
	InstitutionID string `json:"institution"`
}

// Validate cleans and validates the input. Uniqueness of
// registration_number/email/cpf is checked by Service.CreateAccount.
func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.RegistrationNumber = core.CleanString(na.RegistrationNumber, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.CPF = core.CleanString(na.CPF)
	na.FullName = core.CleanString(na.FullName)

	return validate.Struct(na)
}

func (na *NewAccount) roleFlagCount() int {
	var n int
	for _, flag := range []bool{na.IsStudent, na.IsTeacher, na.IsAdmin} {
		if flag {
			n++
		}
	}
	return n
}

// Role returns the subtype selected by the input flags; false when none is set.
func (na *NewAccount) Role() (Role, bool) {
	switch {
	case na.IsStudent:
		return RoleStudent, true
	case na.IsTeacher:
		return RoleTeacher, true
	case na.IsAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// UpdateUser defines what information may be provided to modify an
// existing User. Role flags are immutable after creation.
type UpdateUser struct {
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(orig User, validate *validator.Validate) error {
	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	return validate.Struct(uu)
}

// NewProfile contains information needed for an admin to attach a
// Teacher or Student profile to an existing User. The role comes from the
// operation, never from the payload; a teacher's institution is inherited
// from the calling admin as an explicit part of the contract.
type NewProfile struct {
	UserID      string `json:"user" validate:"required"`
	CPF         string `json:"cpf" validate:"required,cpf"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	ClassID     string `json:"class_id"`
}

func (np *NewProfile) Validate(validate *validator.Validate) error {
	np.CPF = core.CleanString(np.CPF)
	np.FullName = core.CleanString(np.FullName)
	return validate.Struct(np)
}

// UpdateProfile defines what profile fields the owner may modify.
type UpdateProfile struct {
	CPF         string `json:"cpf" validate:"omitempty,cpf"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
}

func (up *UpdateProfile) Validate(orig Profile, validate *validator.Validate) error {
	cpf := core.CleanString(up.CPF)
	if cpf != "" {
		up.CPF = cpf
	} else {
		up.CPF = orig.CPF
	}

	name := core.CleanString(up.FullName)
	if name != "" {
		up.FullName = name
	} else {
		up.FullName = orig.FullName
	}

	return validate.Struct(up)
}

// NewAddress contains information needed to attach an Address to the
// caller's own profile.
type NewAddress struct {
	State        string `json:"state" validate:"required,len=2"`
	City         string `json:"city" validate:"required"`
	Street       string `json:"street" validate:"required"`
	Neighborhood string `json:"neighborhood" validate:"required"`
	Number       int    `json:"number" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Complement   string `json:"complement"`
}

func (na *NewAddress) Validate(validate *validator.Validate) error {
	na.State = core.CleanString(na.State, true /* lower */)
	na.City = core.CleanString(na.City)
	na.Street = core.CleanString(na.Street)
	na.Neighborhood = core.CleanString(na.Neighborhood)
	return validate.Struct(na)
}

type UpdateAddress struct {
	State        string  `json:"state" validate:"omitempty,len=2"`
	City         string  `json:"city"`
	Street       string  `json:"street"`
	Neighborhood string  `json:"neighborhood"`
	Number       *int    `json:"number"`
	PostalCode   string  `json:"postal_code"`
	Complement   *string `json:"complement"`
}

func (ua *UpdateAddress) Validate(validate *validator.Validate) error {
	ua.State = core.CleanString(ua.State, true /* lower */)
	return validate.Struct(ua)
}

// QueryFilter narrows admin user listings.
type QueryFilter struct {
	Search      string    `query:"search"`
	Role        Role      `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single User by one of its unique attributes.
type GetFilter struct {
	ID                 string
	RegistrationNumber string
	Email              string
}
