package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/classpath/backend/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// trapSchoolNoRowsErr maps psql "no rows" err to school.ErrNotFound
func trapSchoolNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

type institutionRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
	ModifiedAt  time.Time   `db:"modified_at"`
}

func (r institutionRow) toInstitution() school.Institution {
	return school.Institution{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt,
		ModifiedAt:  r.ModifiedAt,
	}
}

func newInstitutionRow(inst school.Institution) institutionRow {
	return institutionRow{
		ID:          inst.ID,
		Name:        inst.Name,
		Description: null.NewString(inst.Description, inst.Description != ""),
		CreatedAt:   inst.CreatedAt.UTC(),
		ModifiedAt:  inst.ModifiedAt.UTC(),
	}
}

type programRow struct {
	ID            string      `db:"id"`
	InstitutionID string      `db:"institution_id"`
	Name          string      `db:"name"`
	Description   null.String `db:"description"`
	CreatedAt     time.Time   `db:"created_at"`
	ModifiedAt    time.Time   `db:"modified_at"`
}

func (r programRow) toProgram() school.Program {
	return school.Program{
		ID:            r.ID,
		InstitutionID: r.InstitutionID,
		Name:          r.Name,
		Description:   r.Description.String,
		CreatedAt:     r.CreatedAt,
		ModifiedAt:    r.ModifiedAt,
	}
}

func newProgramRow(prog school.Program) programRow {
	return programRow{
		ID:            prog.ID,
		InstitutionID: prog.InstitutionID,
		Name:          prog.Name,
		Description:   null.NewString(prog.Description, prog.Description != ""),
		CreatedAt:     prog.CreatedAt.UTC(),
		ModifiedAt:    prog.ModifiedAt.UTC(),
	}
}

type classRow struct {
	ID          string      `db:"id"`
	ProgramID   string      `db:"program_id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
	ModifiedAt  time.Time   `db:"modified_at"`
}

func (r classRow) toClass() school.Class {
	return school.Class{
		ID:          r.ID,
		ProgramID:   r.ProgramID,
		Name:        r.Name,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt,
		ModifiedAt:  r.ModifiedAt,
	}
}

func newClassRow(cls school.Class) classRow {
	return classRow{
		ID:          cls.ID,
		ProgramID:   cls.ProgramID,
		Name:        cls.Name,
		Description: null.NewString(cls.Description, cls.Description != ""),
		CreatedAt:   cls.CreatedAt.UTC(),
		ModifiedAt:  cls.ModifiedAt.UTC(),
	}
}

type courseRow struct {
	ID          string      `db:"id"`
	ClassID     string      `db:"class_id"`
	ProgramID   string      `db:"program_id"`
	TeacherID   string      `db:"teacher_id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
	ModifiedAt  time.Time   `db:"modified_at"`
}

func (r courseRow) toCourse() school.Course {
	return school.Course{
		ID:          r.ID,
		ClassID:     r.ClassID,
		ProgramID:   r.ProgramID,
		TeacherID:   r.TeacherID,
		Name:        r.Name,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt,
		ModifiedAt:  r.ModifiedAt,
	}
}

func newCourseRow(crs school.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		ClassID:     crs.ClassID,
		ProgramID:   crs.ProgramID,
		TeacherID:   crs.TeacherID,
		Name:        crs.Name,
		Description: null.NewString(crs.Description, crs.Description != ""),
		CreatedAt:   crs.CreatedAt.UTC(),
		ModifiedAt:  crs.ModifiedAt.UTC(),
	}
}

// institutionScopeWhere renders the scope as a WHERE fragment on alias "i".
func institutionScopeWhere(scope school.InstitutionScope) (string, []interface{}) {
	switch {
	case scope.All:
		return "TRUE", nil
	case scope.ID != "":
		return "i.id = ?", []interface{}{scope.ID}
	case scope.OfClassID != "":
		frag := `i.id = (
			SELECT pr.institution_id FROM class c
			JOIN program pr ON c.program_id = pr.id
			WHERE c.id = ?)`
		return frag, []interface{}{scope.OfClassID}
	}
	return "FALSE", nil
}

// programScopeWhere renders the scope as a WHERE fragment on alias "p".
func programScopeWhere(scope school.ProgramScope) (string, []interface{}) {
	switch {
	case scope.All:
		return "TRUE", nil
	case scope.InstitutionID != "":
		return "p.institution_id = ?", []interface{}{scope.InstitutionID}
	case scope.TaughtByID != "":
		return "p.id IN (SELECT program_id FROM course WHERE teacher_id = ?)", []interface{}{scope.TaughtByID}
	case scope.OfClassID != "":
		return "p.id = (SELECT program_id FROM class WHERE id = ?)", []interface{}{scope.OfClassID}
	}
	return "FALSE", nil
}

// classScopeWhere renders the scope as a WHERE fragment on alias "c".
func classScopeWhere(scope school.ClassScope) (string, []interface{}) {
	switch {
	case scope.All:
		return "TRUE", nil
	case scope.InstitutionID != "":
		return "c.program_id IN (SELECT id FROM program WHERE institution_id = ?)", []interface{}{scope.InstitutionID}
	case scope.TaughtByID != "":
		return "c.id IN (SELECT class_id FROM course WHERE teacher_id = ?)", []interface{}{scope.TaughtByID}
	case scope.ID != "":
		return "c.id = ?", []interface{}{scope.ID}
	}
	return "FALSE", nil
}

// courseScopeWhere renders the scope as a WHERE fragment on alias "co".
func courseScopeWhere(scope school.CourseScope) (string, []interface{}) {
	switch {
	case scope.All:
		return "TRUE", nil
	case scope.InstitutionID != "":
		return "co.program_id IN (SELECT id FROM program WHERE institution_id = ?)", []interface{}{scope.InstitutionID}
	case scope.TeacherID != "":
		return "co.teacher_id = ?", []interface{}{scope.TeacherID}
	case scope.ClassID != "":
		return "co.class_id = ?", []interface{}{scope.ClassID}
	}
	return "FALSE", nil
}

const insertInstitutionStmt = `
	INSERT INTO institution (id, name, description, created_at, modified_at)
	VALUES (:id, :name, :description, :created_at, :modified_at)`

func (repo schoolRepository) CreateInstitution(ctx context.Context, inst school.Institution, adminProfileID string) (school.Institution, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return school.Institution{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	inst.ID = uuid.New().String()
	if _, err = tx.NamedExecContext(ctx, insertInstitutionStmt, newInstitutionRow(inst)); err != nil {
		return school.Institution{}, errors.Wrap(err, "inserting institution")
	}

	stmt := repo.db.Rebind("UPDATE profile SET institution_id = ?, modified_at = ? WHERE id = ?")
	if _, err = tx.ExecContext(ctx, stmt, inst.ID, time.Now().UTC(), adminProfileID); err != nil {
		return school.Institution{}, errors.Wrap(err, "assigning institution to admin")
	}

	if err = tx.Commit(); err != nil {
		return school.Institution{}, errors.Wrap(err, "committing institution")
	}
	return inst, nil
}

func (repo schoolRepository) GetInstitution(ctx context.Context, scope school.InstitutionScope, id string) (school.Institution, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Institution{}, school.ErrNotFound
	}
	where, args := institutionScopeWhere(scope)
	args = append([]interface{}{id}, args...)

	var row institutionRow
	query := "SELECT i.* FROM institution i WHERE i.id = ? AND " + where
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), args...); err != nil {
		return school.Institution{}, trapSchoolNoRowsErr(err, "finding institution")
	}
	return row.toInstitution(), nil
}

func (repo schoolRepository) QueryInstitutions(ctx context.Context, scope school.InstitutionScope) ([]school.Institution, error) {
	where, args := institutionScopeWhere(scope)
	query := "SELECT i.* FROM institution i WHERE " + where + " ORDER BY i.created_at"

	var rows []institutionRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying institutions")
	}
	insts := make([]school.Institution, 0, len(rows))
	for _, r := range rows {
		insts = append(insts, r.toInstitution())
	}
	return insts, nil
}

const updateInstitutionStmt = `
	UPDATE institution SET name = :name, description = :description, modified_at = :modified_at
	WHERE id = :id`

func (repo schoolRepository) UpdateInstitution(ctx context.Context, inst school.Institution) (school.Institution, error) {
	res, err := repo.db.NamedExecContext(ctx, updateInstitutionStmt, newInstitutionRow(inst))
	if err != nil {
		return school.Institution{}, errors.Wrap(err, "updating institution")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Institution{}, school.ErrNotFound
	}
	return inst, nil
}

func (repo schoolRepository) DeleteInstitutionsByID(ctx context.Context, ids ...string) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	cascade := []string{
		"DELETE FROM course WHERE program_id IN (SELECT id FROM program WHERE institution_id IN (?))",
		"DELETE FROM class WHERE program_id IN (SELECT id FROM program WHERE institution_id IN (?))",
		"DELETE FROM program WHERE institution_id IN (?)",
		"UPDATE profile SET institution_id = NULL WHERE institution_id IN (?)",
	}
	for _, stmt := range cascade {
		query, args, err := sqlx.In(stmt, ids)
		if err != nil {
			return 0, errors.Wrap(err, "building cascade query")
		}
		if _, err = tx.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
			return 0, errors.Wrap(err, "cascading institution delete")
		}
	}

	query, args, err := sqlx.In("DELETE FROM institution WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := tx.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting institutions")
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing institution delete")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

const insertProgramStmt = `
	INSERT INTO program (id, institution_id, name, description, created_at, modified_at)
	VALUES (:id, :institution_id, :name, :description, :created_at, :modified_at)`

func (repo schoolRepository) CreateProgram(ctx context.Context, prog school.Program) (school.Program, error) {
	prog.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertProgramStmt, newProgramRow(prog)); err != nil {
		return school.Program{}, errors.Wrap(err, "inserting program")
	}
	return prog, nil
}

func (repo schoolRepository) GetProgram(ctx context.Context, scope school.ProgramScope, id string) (school.Program, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Program{}, school.ErrNotFound
	}
	where, args := programScopeWhere(scope)
	args = append([]interface{}{id}, args...)

	var row programRow
	query := "SELECT p.* FROM program p WHERE p.id = ? AND " + where
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), args...); err != nil {
		return school.Program{}, trapSchoolNoRowsErr(err, "finding program")
	}
	return row.toProgram(), nil
}

func (repo schoolRepository) QueryPrograms(ctx context.Context, scope school.ProgramScope) ([]school.Program, error) {
	where, args := programScopeWhere(scope)
	query := "SELECT p.* FROM program p WHERE " + where + " ORDER BY p.created_at"

	var rows []programRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}
	progs := make([]school.Program, 0, len(rows))
	for _, r := range rows {
		progs = append(progs, r.toProgram())
	}
	return progs, nil
}

const updateProgramStmt = `
	UPDATE program SET name = :name, description = :description, modified_at = :modified_at
	WHERE id = :id`

func (repo schoolRepository) UpdateProgram(ctx context.Context, prog school.Program) (school.Program, error) {
	res, err := repo.db.NamedExecContext(ctx, updateProgramStmt, newProgramRow(prog))
	if err != nil {
		return school.Program{}, errors.Wrap(err, "updating program")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Program{}, school.ErrNotFound
	}
	return prog, nil
}

func (repo schoolRepository) DeleteProgramsByID(ctx context.Context, ids ...string) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	cascade := []string{
		"DELETE FROM course WHERE program_id IN (?)",
		"UPDATE profile SET class_id = NULL WHERE class_id IN (SELECT id FROM class WHERE program_id IN (?))",
		"DELETE FROM class WHERE program_id IN (?)",
	}
	for _, stmt := range cascade {
		query, args, err := sqlx.In(stmt, ids)
		if err != nil {
			return 0, errors.Wrap(err, "building cascade query")
		}
		if _, err = tx.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
			return 0, errors.Wrap(err, "cascading program delete")
		}
	}

	query, args, err := sqlx.In("DELETE FROM program WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := tx.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting programs")
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing program delete")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

const insertClassStmt = `
	INSERT INTO class (id, program_id, name, description, created_at, modified_at)
	VALUES (:id, :program_id, :name, :description, :created_at, :modified_at)`

func (repo schoolRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	cls.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertClassStmt, newClassRow(cls)); err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo schoolRepository) GetClass(ctx context.Context, scope school.ClassScope, id string) (school.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Class{}, school.ErrNotFound
	}
	where, args := classScopeWhere(scope)
	args = append([]interface{}{id}, args...)

	var row classRow
	query := "SELECT c.* FROM class c WHERE c.id = ? AND " + where
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), args...); err != nil {
		return school.Class{}, trapSchoolNoRowsErr(err, "finding class")
	}
	return row.toClass(), nil
}

func (repo schoolRepository) QueryClasses(ctx context.Context, scope school.ClassScope) ([]school.Class, error) {
	where, args := classScopeWhere(scope)
	query := "SELECT c.* FROM class c WHERE " + where + " ORDER BY c.created_at"

	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.toClass())
	}
	return classes, nil
}

const updateClassStmt = `
	UPDATE class SET name = :name, description = :description, modified_at = :modified_at
	WHERE id = :id`

func (repo schoolRepository) UpdateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	res, err := repo.db.NamedExecContext(ctx, updateClassStmt, newClassRow(cls))
	if err != nil {
		return school.Class{}, errors.Wrap(err, "updating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Class{}, school.ErrNotFound
	}
	return cls, nil
}

func (repo schoolRepository) DeleteClassesByID(ctx context.Context, ids ...string) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	cascade := []string{
		"DELETE FROM course WHERE class_id IN (?)",
		"UPDATE profile SET class_id = NULL WHERE class_id IN (?)",
	}
	for _, stmt := range cascade {
		query, args, err := sqlx.In(stmt, ids)
		if err != nil {
			return 0, errors.Wrap(err, "building cascade query")
		}
		if _, err = tx.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
			return 0, errors.Wrap(err, "cascading class delete")
		}
	}

	query, args, err := sqlx.In("DELETE FROM class WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := tx.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting classes")
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing class delete")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

const insertCourseStmt = `
	INSERT INTO course (id, class_id, program_id, teacher_id, name, description, created_at, modified_at)
	VALUES (:id, :class_id, :program_id, :teacher_id, :name, :description, :created_at, :modified_at)`

func (repo schoolRepository) CreateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	crs.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertCourseStmt, newCourseRow(crs)); err != nil {
		return school.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo schoolRepository) GetCourse(ctx context.Context, scope school.CourseScope, id string) (school.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Course{}, school.ErrNotFound
	}
	where, args := courseScopeWhere(scope)
	args = append([]interface{}{id}, args...)

	var row courseRow
	query := "SELECT co.* FROM course co WHERE co.id = ? AND " + where
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), args...); err != nil {
		return school.Course{}, trapSchoolNoRowsErr(err, "finding course")
	}
	return row.toCourse(), nil
}

func (repo schoolRepository) QueryCourses(ctx context.Context, scope school.CourseScope) ([]school.Course, error) {
	where, args := courseScopeWhere(scope)
	query := "SELECT co.* FROM course co WHERE " + where + " ORDER BY co.created_at"

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]school.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

const updateCourseStmt = `
	UPDATE course SET name = :name, description = :description, teacher_id = :teacher_id,
		modified_at = :modified_at
	WHERE id = :id`

func (repo schoolRepository) UpdateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	res, err := repo.db.NamedExecContext(ctx, updateCourseStmt, newCourseRow(crs))
	if err != nil {
		return school.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Course{}, school.ErrNotFound
	}
	return crs, nil
}

func (repo schoolRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	query, args, err := sqlx.In("DELETE FROM course WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

func (repo schoolRepository) InstitutionExists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var exists bool
	query := repo.db.Rebind("SELECT EXISTS(SELECT 1 FROM institution WHERE id = ?)")
	if err := repo.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, errors.Wrap(err, "checking institution existence")
	}
	return exists, nil
}

func (repo schoolRepository) ClassExists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var exists bool
	query := repo.db.Rebind("SELECT EXISTS(SELECT 1 FROM class WHERE id = ?)")
	if err := repo.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, errors.Wrap(err, "checking class existence")
	}
	return exists, nil
}

func (repo schoolRepository) ClassInstitutionID(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", school.ErrNotFound
	}
	var instID string
	query := repo.db.Rebind(`
		SELECT p.institution_id FROM class c
		JOIN program p ON c.program_id = p.id
		WHERE c.id = ?`)
	if err := repo.db.GetContext(ctx, &instID, query, id); err != nil {
		return "", trapSchoolNoRowsErr(err, "resolving class institution")
	}
	return instID, nil
}

func (repo schoolRepository) ProgramInstitutionID(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", school.ErrNotFound
	}
	var instID string
	query := repo.db.Rebind("SELECT institution_id FROM program WHERE id = ?")
	if err := repo.db.GetContext(ctx, &instID, query, id); err != nil {
		return "", trapSchoolNoRowsErr(err, "resolving program institution")
	}
	return instID, nil
}
