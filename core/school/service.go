package school

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/classpath/backend/core"
	"github.com/classpath/backend/core/account"
)

var (
	// errors
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")

	errUnknownTeacher  = errors.New("teacher not found")
	errTeacherMismatch = errors.New("teacher belongs to another institution")
	errProgramMismatch = errors.New("class does not belong to this program")
)

type (
	Repository interface {
		// CreateInstitution inserts the institution and re-points the
		// creating admin's profile at it in one transaction.
		CreateInstitution(ctx context.Context, inst Institution, adminProfileID string) (Institution, error)
		GetInstitution(ctx context.Context, scope InstitutionScope, id string) (Institution, error)
		QueryInstitutions(ctx context.Context, scope InstitutionScope) ([]Institution, error)
		UpdateInstitution(ctx context.Context, inst Institution) (Institution, error)
		// DeleteInstitutionsByID cascades to programs, classes and courses.
		DeleteInstitutionsByID(ctx context.Context, ids ...string) (int, error)

		CreateProgram(ctx context.Context, prog Program) (Program, error)
		GetProgram(ctx context.Context, scope ProgramScope, id string) (Program, error)
		QueryPrograms(ctx context.Context, scope ProgramScope) ([]Program, error)
		UpdateProgram(ctx context.Context, prog Program) (Program, error)
		// DeleteProgramsByID cascades to classes and courses.
		DeleteProgramsByID(ctx context.Context, ids ...string) (int, error)

		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, scope ClassScope, id string) (Class, error)
		QueryClasses(ctx context.Context, scope ClassScope) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClassesByID(ctx context.Context, ids ...string) (int, error)

		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, scope CourseScope, id string) (Course, error)
		QueryCourses(ctx context.Context, scope CourseScope) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) (int, error)

		// reference helpers, also backing account.ReferenceChecker
		InstitutionExists(ctx context.Context, id string) (bool, error)
		ClassExists(ctx context.Context, id string) (bool, error)
		ClassInstitutionID(ctx context.Context, id string) (string, error)
		ProgramInstitutionID(ctx context.Context, id string) (string, error)
	}

	// ProfileDirectory resolves teacher profiles owned by the account domain.
	ProfileDirectory interface {
		GetProfileByID(ctx context.Context, id string) (account.Profile, error)
	}

	Service struct {
		repo     Repository
		profiles ProfileDirectory
		logger   core.Logger
	}
)

func NewService(repo Repository, profiles ProfileDirectory, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		profiles: profiles,
		logger:   logger,
	}
}

// requireAdmin refuses callers that are not admins with a resolved profile.
func requireAdmin(caller account.Resolved) error {
	if !caller.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}

// CreateInstitution inserts a new Institution and, as a documented
// side-effect of the operation, assigns it to the calling admin's profile
// in the same transaction.
func (svc *Service) CreateInstitution(ctx context.Context, caller account.Resolved, ni NewInstitution) (Institution, error) {
	if err := requireAdmin(caller); err != nil {
		return Institution{}, err
	}
	now := time.Now().UTC()
	inst := Institution{
		Name:        ni.Name,
		Description: ni.Description,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	inst, err := svc.repo.CreateInstitution(ctx, inst, caller.Profile.ID)
	if err != nil {
		return Institution{}, err
	}
	svc.logger.Info(fmt.Sprintf("institution %s created and assigned to admin profile %s", inst.ID, caller.Profile.ID))
	return inst, nil
}

func (svc *Service) QueryInstitutions(ctx context.Context, caller account.Resolved) ([]Institution, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	scope := ScopeInstitutions(caller)
	if scope.IsEmpty() {
		return []Institution{}, nil
	}
	return svc.repo.QueryInstitutions(ctx, scope)
}

func (svc *Service) GetInstitution(ctx context.Context, caller account.Resolved, id string) (Institution, error) {
	if err := requireAdmin(caller); err != nil {
		return Institution{}, err
	}
	scope := ScopeInstitutions(caller)
	if scope.IsEmpty() {
		return Institution{}, ErrNotFound
	}
	return svc.repo.GetInstitution(ctx, scope, id)
}

// MyInstitution returns the caller's own institution, whatever their role.
func (svc *Service) MyInstitution(ctx context.Context, caller account.Resolved) (Institution, error) {
	scope := ScopeInstitutions(caller)
	if scope.IsEmpty() {
		return Institution{}, ErrNotFound
	}
	if scope.ID != "" {
		return svc.repo.GetInstitution(ctx, scope, scope.ID)
	}
	insts, err := svc.repo.QueryInstitutions(ctx, scope)
	if err != nil {
		return Institution{}, err
	}
	if len(insts) == 0 {
		return Institution{}, ErrNotFound
	}
	return insts[0], nil
}

func (svc *Service) UpdateInstitution(ctx context.Context, caller account.Resolved, id string, ui UpdateInstitution) (Institution, error) {
	if err := requireAdmin(caller); err != nil {
		return Institution{}, err
	}
	inst, err := svc.repo.GetInstitution(ctx, AllInstitutions(), id)
	if err != nil {
		return Institution{}, err
	}
	if caller.Profile.InstitutionID != id {
		return Institution{}, ErrPermissionDenied
	}
	if ui.Name != "" {
		inst.Name = ui.Name
	}
	if ui.Description != nil {
		inst.Description = *ui.Description
	}
	inst.ModifiedAt = time.Now().UTC()
	return svc.repo.UpdateInstitution(ctx, inst)
}

func (svc *Service) DeleteInstitutions(ctx context.Context, caller account.Resolved, ids ...string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := svc.repo.GetInstitution(ctx, AllInstitutions(), id); err != nil {
			return err
		}
		if caller.Profile.InstitutionID != id {
			return ErrPermissionDenied
		}
	}
	_, err := svc.repo.DeleteInstitutionsByID(ctx, ids...)
	return err
}

// CreateProgram inserts a Program under the calling admin's institution.
func (svc *Service) CreateProgram(ctx context.Context, caller account.Resolved, np NewProgram) (Program, error) {
	if err := requireAdmin(caller); err != nil {
		return Program{}, err
	}
	instID := caller.Profile.InstitutionID
	if instID == "" {
		return Program{}, ErrPermissionDenied
	}
	if np.InstitutionID != "" && np.InstitutionID != instID {
		return Program{}, ErrPermissionDenied
	}
	now := time.Now().UTC()
	prog := Program{
		InstitutionID: instID,
		Name:          np.Name,
		Description:   np.Description,
		CreatedAt:     now,
		ModifiedAt:    now,
	}
	return svc.repo.CreateProgram(ctx, prog)
}

// QueryPrograms lists the programs visible to the caller per their scope.
func (svc *Service) QueryPrograms(ctx context.Context, caller account.Resolved) ([]Program, error) {
	scope := ScopePrograms(caller)
	if scope.IsEmpty() {
		return []Program{}, nil
	}
	return svc.repo.QueryPrograms(ctx, scope)
}

func (svc *Service) GetProgram(ctx context.Context, caller account.Resolved, id string) (Program, error) {
	scope := ScopePrograms(caller)
	if scope.IsEmpty() {
		return Program{}, ErrNotFound
	}
	return svc.repo.GetProgram(ctx, scope, id)
}

func (svc *Service) UpdateProgram(ctx context.Context, caller account.Resolved, id string, ue UpdateEntity) (Program, error) {
	if err := requireAdmin(caller); err != nil {
		return Program{}, err
	}
	prog, err := svc.repo.GetProgram(ctx, AllPrograms(), id)
	if err != nil {
		return Program{}, err
	}
	if prog.InstitutionID != caller.Profile.InstitutionID {
		return Program{}, ErrPermissionDenied
	}
	if ue.Name != "" {
		prog.Name = ue.Name
	}
	if ue.Description != nil {
		prog.Description = *ue.Description
	}
	prog.ModifiedAt = time.Now().UTC()
	return svc.repo.UpdateProgram(ctx, prog)
}

func (svc *Service) DeletePrograms(ctx context.Context, caller account.Resolved, ids ...string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	for _, id := range ids {
		prog, err := svc.repo.GetProgram(ctx, AllPrograms(), id)
		if err != nil {
			return err
		}
		if prog.InstitutionID != caller.Profile.InstitutionID {
			return ErrPermissionDenied
		}
	}
	_, err := svc.repo.DeleteProgramsByID(ctx, ids...)
	return err
}

// CreateClass inserts a Class under a program of the admin's institution.
func (svc *Service) CreateClass(ctx context.Context, caller account.Resolved, nc NewClass) (Class, error) {
	if err := requireAdmin(caller); err != nil {
		return Class{}, err
	}
	instID, err := svc.repo.ProgramInstitutionID(ctx, nc.ProgramID)
	if err != nil {
		return Class{}, err
	}
	if instID != caller.Profile.InstitutionID {
		return Class{}, ErrPermissionDenied
	}
	now := time.Now().UTC()
	cls := Class{
		ProgramID:   nc.ProgramID,
		Name:        nc.Name,
		Description: nc.Description,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) QueryClasses(ctx context.Context, caller account.Resolved) ([]Class, error) {
	scope := ScopeClasses(caller)
	if scope.IsEmpty() {
		return []Class{}, nil
	}
	return svc.repo.QueryClasses(ctx, scope)
}

func (svc *Service) GetClass(ctx context.Context, caller account.Resolved, id string) (Class, error) {
	scope := ScopeClasses(caller)
	if scope.IsEmpty() {
		return Class{}, ErrNotFound
	}
	return svc.repo.GetClass(ctx, scope, id)
}

// MyClass returns the student caller's own class.
func (svc *Service) MyClass(ctx context.Context, caller account.Resolved) (Class, error) {
	if !caller.IsStudent() {
		return Class{}, ErrNotFound
	}
	return svc.repo.GetClass(ctx, ScopeClasses(caller), caller.Profile.ClassID)
}

func (svc *Service) UpdateClass(ctx context.Context, caller account.Resolved, id string, ue UpdateEntity) (Class, error) {
	if err := requireAdmin(caller); err != nil {
		return Class{}, err
	}
	cls, err := svc.repo.GetClass(ctx, AllClasses(), id)
	if err != nil {
		return Class{}, err
	}
	if err = svc.checkProgramOwnership(ctx, caller, cls.ProgramID); err != nil {
		return Class{}, err
	}
	if ue.Name != "" {
		cls.Name = ue.Name
	}
	if ue.Description != nil {
		cls.Description = *ue.Description
	}
	cls.ModifiedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) DeleteClasses(ctx context.Context, caller account.Resolved, ids ...string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	for _, id := range ids {
		cls, err := svc.repo.GetClass(ctx, AllClasses(), id)
		if err != nil {
			return err
		}
		if err = svc.checkProgramOwnership(ctx, caller, cls.ProgramID); err != nil {
			return err
		}
	}
	_, err := svc.repo.DeleteClassesByID(ctx, ids...)
	return err
}

func (svc *Service) checkProgramOwnership(ctx context.Context, caller account.Resolved, programID string) error {
	instID, err := svc.repo.ProgramInstitutionID(ctx, programID)
	if err != nil {
		return err
	}
	if instID != caller.Profile.InstitutionID {
		return ErrPermissionDenied
	}
	return nil
}

// checkCourseTeacher enforces the course/teacher invariant: the referenced
// profile must be a teacher of the same institution the course's program
// belongs to.
func (svc *Service) checkCourseTeacher(ctx context.Context, teacherID, programInstID string) error {
	prof, err := svc.profiles.GetProfileByID(ctx, teacherID)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return core.NewValidationError(errUnknownTeacher, core.FieldError{Field: "teacher", Error: errUnknownTeacher.Error()})
		}
		return errors.Wrap(err, "loading teacher profile")
	}
	if prof.Role != account.RoleTeacher {
		return core.NewValidationError(errUnknownTeacher, core.FieldError{Field: "teacher", Error: errUnknownTeacher.Error()})
	}
	if prof.InstitutionID != programInstID {
		return core.NewValidationError(errTeacherMismatch, core.FieldError{Field: "teacher", Error: errTeacherMismatch.Error()})
	}
	return nil
}

// CreateCourse inserts a Course under the admin's institution. The class
// must belong to the given program and the teacher must be a teacher of
// the same institution.
func (svc *Service) CreateCourse(ctx context.Context, caller account.Resolved, nc NewCourse) (Course, error) {
	if err := requireAdmin(caller); err != nil {
		return Course{}, err
	}
	if err := svc.checkProgramOwnership(ctx, caller, nc.ProgramID); err != nil {
		return Course{}, err
	}
	cls, err := svc.repo.GetClass(ctx, AllClasses(), nc.ClassID)
	if err != nil {
		return Course{}, err
	}
	if cls.ProgramID != nc.ProgramID {
		return Course{}, core.NewValidationError(errProgramMismatch, core.FieldError{Field: "class_id", Error: errProgramMismatch.Error()})
	}
	if err = svc.checkCourseTeacher(ctx, nc.TeacherID, caller.Profile.InstitutionID); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		ClassID:     nc.ClassID,
		ProgramID:   nc.ProgramID,
		TeacherID:   nc.TeacherID,
		Name:        nc.Name,
		Description: nc.Description,
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) QueryCourses(ctx context.Context, caller account.Resolved) ([]Course, error) {
	scope := ScopeCourses(caller)
	if scope.IsEmpty() {
		return []Course{}, nil
	}
	return svc.repo.QueryCourses(ctx, scope)
}

func (svc *Service) GetCourse(ctx context.Context, caller account.Resolved, id string) (Course, error) {
	scope := ScopeCourses(caller)
	if scope.IsEmpty() {
		return Course{}, ErrNotFound
	}
	return svc.repo.GetCourse(ctx, scope, id)
}

func (svc *Service) UpdateCourse(ctx context.Context, caller account.Resolved, id string, ue UpdateEntity) (Course, error) {
	if err := requireAdmin(caller); err != nil {
		return Course{}, err
	}
	crs, err := svc.repo.GetCourse(ctx, AllCourses(), id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.checkProgramOwnership(ctx, caller, crs.ProgramID); err != nil {
		return Course{}, err
	}
	if ue.TeacherID != "" && ue.TeacherID != crs.TeacherID {
		if err = svc.checkCourseTeacher(ctx, ue.TeacherID, caller.Profile.InstitutionID); err != nil {
			return Course{}, err
		}
		crs.TeacherID = ue.TeacherID
	}
	if ue.Name != "" {
		crs.Name = ue.Name
	}
	if ue.Description != nil {
		crs.Description = *ue.Description
	}
	crs.ModifiedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) DeleteCourses(ctx context.Context, caller account.Resolved, ids ...string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	for _, id := range ids {
		crs, err := svc.repo.GetCourse(ctx, AllCourses(), id)
		if err != nil {
			return err
		}
		if err = svc.checkProgramOwnership(ctx, caller, crs.ProgramID); err != nil {
			return err
		}
	}
	_, err := svc.repo.DeleteCoursesByID(ctx, ids...)
	return err
}
