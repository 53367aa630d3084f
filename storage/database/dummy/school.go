package dummy

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/classpath/backend/core/school"
)

type SchoolRepository struct {
	db *DB
}

var _ school.Repository = (*SchoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

func (repo *SchoolRepository) institutionInScopeLocked(inst school.Institution, scope school.InstitutionScope) bool {
	switch {
	case scope.All:
		return true
	case scope.ID != "":
		return inst.ID == scope.ID
	case scope.OfClassID != "":
		return repo.db.classInstitutionIDLocked(scope.OfClassID) == inst.ID
	}
	return false
}

func (repo *SchoolRepository) programInScopeLocked(prog school.Program, scope school.ProgramScope) bool {
	switch {
	case scope.All:
		return true
	case scope.InstitutionID != "":
		return prog.InstitutionID == scope.InstitutionID
	case scope.TaughtByID != "":
		for _, crs := range repo.db.courses {
			if crs.TeacherID == scope.TaughtByID && crs.ProgramID == prog.ID {
				return true
			}
		}
	case scope.OfClassID != "":
		cls, ok := repo.db.classes[scope.OfClassID]
		return ok && cls.ProgramID == prog.ID
	}
	return false
}

func (repo *SchoolRepository) classInScopeLocked(cls school.Class, scope school.ClassScope) bool {
	switch {
	case scope.All:
		return true
	case scope.InstitutionID != "":
		prog, ok := repo.db.programs[cls.ProgramID]
		return ok && prog.InstitutionID == scope.InstitutionID
	case scope.TaughtByID != "":
		return repo.db.teacherTeachesClassLocked(scope.TaughtByID, cls.ID)
	case scope.ID != "":
		return cls.ID == scope.ID
	}
	return false
}

func (repo *SchoolRepository) courseInScopeLocked(crs school.Course, scope school.CourseScope) bool {
	switch {
	case scope.All:
		return true
	case scope.InstitutionID != "":
		prog, ok := repo.db.programs[crs.ProgramID]
		return ok && prog.InstitutionID == scope.InstitutionID
	case scope.TeacherID != "":
		return crs.TeacherID == scope.TeacherID
	case scope.ClassID != "":
		return crs.ClassID == scope.ClassID
	}
	return false
}

func (repo *SchoolRepository) CreateInstitution(ctx context.Context, inst school.Institution, adminProfileID string) (school.Institution, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	inst.ID = uuid.New().String()
	repo.db.institutions[inst.ID] = inst

	if prof, ok := repo.db.profiles[adminProfileID]; ok {
		prof.InstitutionID = inst.ID
		repo.db.profiles[prof.ID] = prof
	}
	return inst, nil
}

func (repo *SchoolRepository) GetInstitution(ctx context.Context, scope school.InstitutionScope, id string) (school.Institution, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	inst, ok := repo.db.institutions[id]
	if !ok || !repo.institutionInScopeLocked(inst, scope) {
		return school.Institution{}, school.ErrNotFound
	}
	return inst, nil
}

func (repo *SchoolRepository) QueryInstitutions(ctx context.Context, scope school.InstitutionScope) ([]school.Institution, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	insts := make([]school.Institution, 0)
	for _, inst := range repo.db.institutions {
		if repo.institutionInScopeLocked(inst, scope) {
			insts = append(insts, inst)
		}
	}
	sort.Slice(insts, func(i, j int) bool {
		if insts[i].CreatedAt.Equal(insts[j].CreatedAt) {
			return insts[i].ID < insts[j].ID
		}
		return insts[i].CreatedAt.Before(insts[j].CreatedAt)
	})
	return insts, nil
}

func (repo *SchoolRepository) UpdateInstitution(ctx context.Context, inst school.Institution) (school.Institution, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.institutions[inst.ID]; !ok {
		return school.Institution{}, school.ErrNotFound
	}
	repo.db.institutions[inst.ID] = inst
	return inst, nil
}

func (repo *SchoolRepository) DeleteInstitutionsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.institutions[id]; !ok {
			continue
		}
		for pid, prog := range repo.db.programs {
			if prog.InstitutionID != id {
				continue
			}
			repo.deleteProgramCascadeLocked(pid)
		}
		for _, prof := range repo.db.profiles {
			if prof.InstitutionID == id {
				prof.InstitutionID = ""
				repo.db.profiles[prof.ID] = prof
			}
		}
		delete(repo.db.institutions, id)
		cnt++
	}
	return cnt, nil
}

// deleteProgramCascadeLocked removes a program with its classes and
// courses. The caller must hold the write lock.
func (repo *SchoolRepository) deleteProgramCascadeLocked(programID string) {
	for cid, cls := range repo.db.classes {
		if cls.ProgramID != programID {
			continue
		}
		for crsID, crs := range repo.db.courses {
			if crs.ClassID == cid {
				delete(repo.db.courses, crsID)
			}
		}
		for _, prof := range repo.db.profiles {
			if prof.ClassID == cid {
				prof.ClassID = ""
				repo.db.profiles[prof.ID] = prof
			}
		}
		delete(repo.db.classes, cid)
	}
	for crsID, crs := range repo.db.courses {
		if crs.ProgramID == programID {
			delete(repo.db.courses, crsID)
		}
	}
	delete(repo.db.programs, programID)
}

func (repo *SchoolRepository) CreateProgram(ctx context.Context, prog school.Program) (school.Program, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	prog.ID = uuid.New().String()
	repo.db.programs[prog.ID] = prog
	return prog, nil
}

func (repo *SchoolRepository) GetProgram(ctx context.Context, scope school.ProgramScope, id string) (school.Program, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	prog, ok := repo.db.programs[id]
	if !ok || !repo.programInScopeLocked(prog, scope) {
		return school.Program{}, school.ErrNotFound
	}
	return prog, nil
}

func (repo *SchoolRepository) QueryPrograms(ctx context.Context, scope school.ProgramScope) ([]school.Program, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	progs := make([]school.Program, 0)
	for _, prog := range repo.db.programs {
		if repo.programInScopeLocked(prog, scope) {
			progs = append(progs, prog)
		}
	}
	sort.Slice(progs, func(i, j int) bool {
		if progs[i].CreatedAt.Equal(progs[j].CreatedAt) {
			return progs[i].ID < progs[j].ID
		}
		return progs[i].CreatedAt.Before(progs[j].CreatedAt)
	})
	return progs, nil
}

func (repo *SchoolRepository) UpdateProgram(ctx context.Context, prog school.Program) (school.Program, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.programs[prog.ID]; !ok {
		return school.Program{}, school.ErrNotFound
	}
	repo.db.programs[prog.ID] = prog
	return prog, nil
}

func (repo *SchoolRepository) DeleteProgramsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.programs[id]; !ok {
			continue
		}
		repo.deleteProgramCascadeLocked(id)
		cnt++
	}
	return cnt, nil
}

func (repo *SchoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	cls.ID = uuid.New().String()
	repo.db.classes[cls.ID] = cls
	return cls, nil
}

func (repo *SchoolRepository) GetClass(ctx context.Context, scope school.ClassScope, id string) (school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cls, ok := repo.db.classes[id]
	if !ok || !repo.classInScopeLocked(cls, scope) {
		return school.Class{}, school.ErrNotFound
	}
	return cls, nil
}

func (repo *SchoolRepository) QueryClasses(ctx context.Context, scope school.ClassScope) ([]school.Class, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]school.Class, 0)
	for _, cls := range repo.db.classes {
		if repo.classInScopeLocked(cls, scope) {
			classes = append(classes, cls)
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].CreatedAt.Equal(classes[j].CreatedAt) {
			return classes[i].ID < classes[j].ID
		}
		return classes[i].CreatedAt.Before(classes[j].CreatedAt)
	})
	return classes, nil
}

func (repo *SchoolRepository) UpdateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return school.Class{}, school.ErrNotFound
	}
	repo.db.classes[cls.ID] = cls
	return cls, nil
}

func (repo *SchoolRepository) DeleteClassesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.classes[id]; !ok {
			continue
		}
		for crsID, crs := range repo.db.courses {
			if crs.ClassID == id {
				delete(repo.db.courses, crsID)
			}
		}
		for _, prof := range repo.db.profiles {
			if prof.ClassID == id {
				prof.ClassID = ""
				repo.db.profiles[prof.ID] = prof
			}
		}
		delete(repo.db.classes, id)
		cnt++
	}
	return cnt, nil
}

func (repo *SchoolRepository) CreateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	crs.ID = uuid.New().String()
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *SchoolRepository) GetCourse(ctx context.Context, scope school.CourseScope, id string) (school.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	crs, ok := repo.db.courses[id]
	if !ok || !repo.courseInScopeLocked(crs, scope) {
		return school.Course{}, school.ErrNotFound
	}
	return crs, nil
}

func (repo *SchoolRepository) QueryCourses(ctx context.Context, scope school.CourseScope) ([]school.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]school.Course, 0)
	for _, crs := range repo.db.courses {
		if repo.courseInScopeLocked(crs, scope) {
			courses = append(courses, crs)
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].ID < courses[j].ID
		}
		return courses[i].CreatedAt.Before(courses[j].CreatedAt)
	})
	return courses, nil
}

func (repo *SchoolRepository) UpdateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return school.Course{}, school.ErrNotFound
	}
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *SchoolRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.courses[id]; !ok {
			continue
		}
		delete(repo.db.courses, id)
		cnt++
	}
	return cnt, nil
}

func (repo *SchoolRepository) InstitutionExists(ctx context.Context, id string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.institutions[id]
	return ok, nil
}

func (repo *SchoolRepository) ClassExists(ctx context.Context, id string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.classes[id]
	return ok, nil
}

func (repo *SchoolRepository) ClassInstitutionID(ctx context.Context, id string) (string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, ok := repo.db.classes[id]; !ok {
		return "", school.ErrNotFound
	}
	instID := repo.db.classInstitutionIDLocked(id)
	if instID == "" {
		return "", school.ErrNotFound
	}
	return instID, nil
}

func (repo *SchoolRepository) ProgramInstitutionID(ctx context.Context, id string) (string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	prog, ok := repo.db.programs[id]
	if !ok {
		return "", school.ErrNotFound
	}
	return prog.InstitutionID, nil
}
