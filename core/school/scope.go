package school

import "github.com/classpath/backend/core/account"

// Scope predicates over school entities, one per entity kind. Scopes are
// declarative: repositories translate them to SQL, the in-memory store
// evaluates them directly. Zero values match nothing so an unbuilt scope
// fails closed.

type (
	InstitutionScope struct {
		All bool
		// ID selects a single institution (admins and teachers: their own).
		ID string
		// OfClassID selects the institution owning the class's program
		// (students: via their class).
		OfClassID string
	}

	ProgramScope struct {
		All bool
		// InstitutionID selects programs of the institution (admins).
		InstitutionID string
		// TaughtByID selects programs referenced by any course taught by
		// the teacher profile (teachers).
		TaughtByID string
		// OfClassID selects the single program owning the class (students).
		OfClassID string
	}

	ClassScope struct {
		All bool
		// InstitutionID selects classes under any program of the
		// institution (admins).
		InstitutionID string
		// TaughtByID selects classes referenced by any course taught by
		// the teacher profile (teachers).
		TaughtByID string
		// ID selects the student's own class.
		ID string
	}

	CourseScope struct {
		All bool
		// InstitutionID selects courses under any program of the
		// institution (admins).
		InstitutionID string
		// TeacherID selects the teacher's own courses.
		TeacherID string
		// ClassID selects the courses of the student's class.
		ClassID string
	}
)

func (s InstitutionScope) IsEmpty() bool {
	return !s.All && s.ID == "" && s.OfClassID == ""
}

func (s ProgramScope) IsEmpty() bool {
	return !s.All && s.InstitutionID == "" && s.TaughtByID == "" && s.OfClassID == ""
}

func (s ClassScope) IsEmpty() bool {
	return !s.All && s.InstitutionID == "" && s.TaughtByID == "" && s.ID == ""
}

func (s CourseScope) IsEmpty() bool {
	return !s.All && s.InstitutionID == "" && s.TeacherID == "" && s.ClassID == ""
}

// Unrestricted scopes; for internal lookups only, never handed to request
// handlers.

func AllInstitutions() InstitutionScope { return InstitutionScope{All: true} }
func AllPrograms() ProgramScope         { return ProgramScope{All: true} }
func AllClasses() ClassScope            { return ClassScope{All: true} }
func AllCourses() CourseScope           { return CourseScope{All: true} }

// ScopeInstitutions computes the institution rows visible to the caller:
// admins and teachers see their own institution, students the one owning
// their class.
func ScopeInstitutions(caller account.Resolved) InstitutionScope {
	if !caller.HasProfile() {
		return InstitutionScope{}
	}
	switch caller.Profile.Role {
	case account.RoleAdmin, account.RoleTeacher:
		return InstitutionScope{ID: caller.Profile.InstitutionID}
	case account.RoleStudent:
		return InstitutionScope{OfClassID: caller.Profile.ClassID}
	}
	return InstitutionScope{}
}

// ScopePrograms computes the program rows visible to the caller.
func ScopePrograms(caller account.Resolved) ProgramScope {
	if !caller.HasProfile() {
		return ProgramScope{}
	}
	switch caller.Profile.Role {
	case account.RoleAdmin:
		return ProgramScope{InstitutionID: caller.Profile.InstitutionID}
	case account.RoleTeacher:
		return ProgramScope{TaughtByID: caller.Profile.ID}
	case account.RoleStudent:
		return ProgramScope{OfClassID: caller.Profile.ClassID}
	}
	return ProgramScope{}
}

// ScopeClasses computes the class rows visible to the caller.
func ScopeClasses(caller account.Resolved) ClassScope {
	if !caller.HasProfile() {
		return ClassScope{}
	}
	switch caller.Profile.Role {
	case account.RoleAdmin:
		return ClassScope{InstitutionID: caller.Profile.InstitutionID}
	case account.RoleTeacher:
		return ClassScope{TaughtByID: caller.Profile.ID}
	case account.RoleStudent:
		return ClassScope{ID: caller.Profile.ClassID}
	}
	return ClassScope{}
}

// ScopeCourses computes the course rows visible to the caller.
func ScopeCourses(caller account.Resolved) CourseScope {
	if !caller.HasProfile() {
		return CourseScope{}
	}
	switch caller.Profile.Role {
	case account.RoleAdmin:
		return CourseScope{InstitutionID: caller.Profile.InstitutionID}
	case account.RoleTeacher:
		return CourseScope{TeacherID: caller.Profile.ID}
	case account.RoleStudent:
		return CourseScope{ClassID: caller.Profile.ClassID}
	}
	return CourseScope{}
}
