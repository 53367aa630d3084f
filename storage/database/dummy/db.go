// Package dummy provides in-memory repositories for tests and local
// development. Data lives in maps guarded by a single lock so the
// account and school repositories can share reference lookups the way
// the SQL implementations share tables.
package dummy

import (
	"sync"

	"github.com/classpath/backend/core/account"
	"github.com/classpath/backend/core/school"
)

type DB struct {
	mu           sync.RWMutex
	users        map[string]account.User
	profiles     map[string]account.Profile
	addresses    map[string]account.Address
	institutions map[string]school.Institution
	programs     map[string]school.Program
	classes      map[string]school.Class
	courses      map[string]school.Course
}

func NewDB() *DB {
	return &DB{
		users:        make(map[string]account.User),
		profiles:     make(map[string]account.Profile),
		addresses:    make(map[string]account.Address),
		institutions: make(map[string]school.Institution),
		programs:     make(map[string]school.Program),
		classes:      make(map[string]school.Class),
		courses:      make(map[string]school.Course),
	}
}

// classInstitutionIDLocked resolves a class to its institution through the
// owning program. The caller must hold at least a read lock.
func (db *DB) classInstitutionIDLocked(classID string) string {
	cls, ok := db.classes[classID]
	if !ok {
		return ""
	}
	prog, ok := db.programs[cls.ProgramID]
	if !ok {
		return ""
	}
	return prog.InstitutionID
}

// profileByUserIDLocked finds a user's profile. The caller must hold at
// least a read lock.
func (db *DB) profileByUserIDLocked(userID string) (account.Profile, bool) {
	for _, p := range db.profiles {
		if p.UserID == userID {
			return p, true
		}
	}
	return account.Profile{}, false
}

// teacherTeachesClassLocked reports whether any course in the class is
// taught by the given teacher profile. The caller must hold at least a
// read lock.
func (db *DB) teacherTeachesClassLocked(teacherID, classID string) bool {
	for _, crs := range db.courses {
		if crs.TeacherID == teacherID && crs.ClassID == classID {
			return true
		}
	}
	return false
}
