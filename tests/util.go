package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/classpath/backend/core"
	"github.com/classpath/backend/core/account"
	"github.com/classpath/backend/core/school"
)

// NewConfig returns a Config suitable for tests; no env lookups.
func NewConfig() *core.Config {
	return &core.Config{
		Debug:            false,
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Classpath",
		SecretKey:        "test-secret-key-do-not-use",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Address: "noreply@test.cd"},
		Server: core.ServerConfig{
			Addr:                      ":0",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        1 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

// NewValidators returns a fully registered validator and translator.
func NewValidators() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	return validate, translator
}

// Logger implements core.Logger and records Warn/Error messages so tests
// can assert on them. It never exits on Fatal.
type Logger struct {
	mu       sync.Mutex
	Warnings []string
	Errors   []string
}

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) Debug(msg string, args ...interface{}) {}
func (l *Logger) Info(msg string, args ...interface{})  {}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warnings = append(l.Warnings, msg)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.Error(msg, args...)
}

func (l *Logger) LastWarning() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.Warnings) == 0 {
		return ""
	}
	return l.Warnings[len(l.Warnings)-1]
}

// CreateUser persists a profile-less User.
func CreateUser(
	t *testing.T,
	repo account.Repository,
	regNum, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) account.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := account.User{
		RegistrationNumber: regNum,
		Email:              email,
		CreatedAt:          tstamp,
		ModifiedAt:         tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, _, err := repo.CreateAccount(context.Background(), usr, nil)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// CreateAccount persists a User with its Profile subtype in one go and
// returns the resolved identity. classID applies to students, instID to
// teachers and admins.
func CreateAccount(
	t *testing.T,
	repo account.Repository,
	regNum, email, pwd, cpf string,
	role account.Role,
	classID, instID string,
	isActive bool,
	createdAt ...time.Time,
) account.Resolved {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := account.User{
		RegistrationNumber: regNum,
		Email:              email,
		IsStudent:          role == account.RoleStudent,
		IsTeacher:          role == account.RoleTeacher,
		IsAdmin:            role == account.RoleAdmin,
		CreatedAt:          tstamp,
		ModifiedAt:         tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount(): %v", err)
		}
	}
	prof := &account.Profile{
		Role:       role,
		CPF:        cpf,
		FullName:   regNum,
		CreatedAt:  tstamp,
		ModifiedAt: tstamp,
	}
	switch role {
	case account.RoleStudent:
		prof.ClassID = classID
	case account.RoleTeacher, account.RoleAdmin:
		prof.InstitutionID = instID
	}
	usr, prof, err := repo.CreateAccount(context.Background(), usr, prof)
	if err != nil {
		t.Fatalf("CreateAccount(): %v", err)
	}
	return account.Resolved{User: usr, Profile: prof}
}

// CreateInstitution persists an Institution without touching any profile.
func CreateInstitution(t *testing.T, repo school.Repository, name string) school.Institution {
	t.Helper()

	now := time.Now().UTC()
	inst, err := repo.CreateInstitution(context.Background(), school.Institution{
		Name:       name,
		CreatedAt:  now,
		ModifiedAt: now,
	}, "" /* adminProfileID */)
	if err != nil {
		t.Fatalf("CreateInstitution(): %v", err)
	}
	return inst
}

func CreateProgram(t *testing.T, repo school.Repository, instID, name string) school.Program {
	t.Helper()

	now := time.Now().UTC()
	prog, err := repo.CreateProgram(context.Background(), school.Program{
		InstitutionID: instID,
		Name:          name,
		CreatedAt:     now,
		ModifiedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateProgram(): %v", err)
	}
	return prog
}

func CreateClass(t *testing.T, repo school.Repository, progID, name string) school.Class {
	t.Helper()

	now := time.Now().UTC()
	cls, err := repo.CreateClass(context.Background(), school.Class{
		ProgramID:  progID,
		Name:       name,
		CreatedAt:  now,
		ModifiedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateClass(): %v", err)
	}
	return cls
}

func CreateCourse(t *testing.T, repo school.Repository, classID, progID, teacherID, name string) school.Course {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), school.Course{
		ClassID:    classID,
		ProgramID:  progID,
		TeacherID:  teacherID,
		Name:       name,
		CreatedAt:  now,
		ModifiedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return crs
}

// CreateAddress persists an Address for the given profile.
func CreateAddress(t *testing.T, repo account.Repository, profileID, city string) account.Address {
	t.Helper()

	now := time.Now().UTC()
	addr, err := repo.CreateAddress(context.Background(), account.Address{
		ProfileID:    profileID,
		State:        "sp",
		City:         city,
		Street:       fmt.Sprintf("%s street", city),
		Neighborhood: "centro",
		Number:       42,
		PostalCode:   "01000-000",
		CreatedAt:    now,
		ModifiedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateAddress(): %v", err)
	}
	return addr
}
