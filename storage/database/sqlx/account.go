package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/classpath/backend/core"
	"github.com/classpath/backend/core/account"
)

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

type userRow struct {
	ID                 string    `db:"id"`
	RegistrationNumber string    `db:"registration_number"`
	Email              string    `db:"email"`
	IsActive           null.Bool `db:"is_active"`
	IsStudent          bool      `db:"is_student"`
	IsTeacher          bool      `db:"is_teacher"`
	IsAdmin            bool      `db:"is_admin"`
	PasswordHash       []byte    `db:"password_hash"`
	CreatedAt          time.Time `db:"created_at"`
	ModifiedAt         time.Time `db:"modified_at"`
	LastLogin          null.Time `db:"last_login"`
}

func (r userRow) toUser() account.User {
	return account.User{
		ID:                 r.ID,
		RegistrationNumber: r.RegistrationNumber,
		Email:              r.Email,
		IsActive:           r.IsActive.Ptr(),
		IsStudent:          r.IsStudent,
		IsTeacher:          r.IsTeacher,
		IsAdmin:            r.IsAdmin,
		PasswordHash:       r.PasswordHash,
		CreatedAt:          r.CreatedAt,
		ModifiedAt:         r.ModifiedAt,
		LastLogin:          r.LastLogin.Time,
	}
}

func newUserRow(usr account.User) userRow {
	return userRow{
		ID:                 usr.ID,
		RegistrationNumber: usr.RegistrationNumber,
		Email:              usr.Email,
		IsActive:           null.BoolFromPtr(usr.IsActive),
		IsStudent:          usr.IsStudent,
		IsTeacher:          usr.IsTeacher,
		IsAdmin:            usr.IsAdmin,
		PasswordHash:       usr.PasswordHash,
		CreatedAt:          usr.CreatedAt.UTC(),
		ModifiedAt:         usr.ModifiedAt.UTC(),
		LastLogin:          null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

type profileRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	Role          string      `db:"role"`
	CPF           string      `db:"cpf"`
	FullName      null.String `db:"full_name"`
	Description   null.String `db:"description"`
	ClassID       null.String `db:"class_id"`
	InstitutionID null.String `db:"institution_id"`
	CreatedAt     time.Time   `db:"created_at"`
	ModifiedAt    time.Time   `db:"modified_at"`
}

func (r profileRow) toProfile() account.Profile {
	return account.Profile{
		ID:            r.ID,
		UserID:        r.UserID,
		Role:          account.Role(r.Role),
		CPF:           r.CPF,
		FullName:      r.FullName.String,
		Description:   r.Description.String,
		ClassID:       r.ClassID.String,
		InstitutionID: r.InstitutionID.String,
		CreatedAt:     r.CreatedAt,
		ModifiedAt:    r.ModifiedAt,
	}
}

func newProfileRow(prof account.Profile) profileRow {
	return profileRow{
		ID:            prof.ID,
		UserID:        prof.UserID,
		Role:          string(prof.Role),
		CPF:           prof.CPF,
		FullName:      null.NewString(prof.FullName, prof.FullName != ""),
		Description:   null.NewString(prof.Description, prof.Description != ""),
		ClassID:       null.NewString(prof.ClassID, prof.ClassID != ""),
		InstitutionID: null.NewString(prof.InstitutionID, prof.InstitutionID != ""),
		CreatedAt:     prof.CreatedAt.UTC(),
		ModifiedAt:    prof.ModifiedAt.UTC(),
	}
}

type addressRow struct {
	ID           string      `db:"id"`
	ProfileID    string      `db:"profile_id"`
	State        string      `db:"state"`
	City         string      `db:"city"`
	Street       string      `db:"street"`
	Neighborhood string      `db:"neighborhood"`
	Number       int         `db:"number"`
	PostalCode   string      `db:"postal_code"`
	Complement   null.String `db:"complement"`
	CreatedAt    time.Time   `db:"created_at"`
	ModifiedAt   time.Time   `db:"modified_at"`
}

func (r addressRow) toAddress() account.Address {
	return account.Address{
		ID:           r.ID,
		ProfileID:    r.ProfileID,
		State:        r.State,
		City:         r.City,
		Street:       r.Street,
		Neighborhood: r.Neighborhood,
		Number:       r.Number,
		PostalCode:   r.PostalCode,
		Complement:   r.Complement.String,
		CreatedAt:    r.CreatedAt,
		ModifiedAt:   r.ModifiedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to account.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return account.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// userScopeWhere renders the scope as a WHERE fragment on alias "u".
func userScopeWhere(scope account.UserScope) (string, []interface{}) {
	switch {
	case scope.All:
		return "TRUE", nil
	case scope.SelfID != "":
		return "u.id = ?", []interface{}{scope.SelfID}
	case scope.InstitutionID != "":
		frag := `u.id IN (
			SELECT p.user_id FROM profile p
			WHERE p.role = 'teacher' AND p.institution_id = ?
			UNION
			SELECT p.user_id FROM profile p
			JOIN class c ON p.class_id = c.id
			JOIN program pr ON c.program_id = pr.id
			WHERE p.role = 'student' AND pr.institution_id = ?)`
		return frag, []interface{}{scope.InstitutionID, scope.InstitutionID}
	}
	return "FALSE", nil
}

// profileScopeWhere renders the scope as a WHERE fragment on alias "p".
func profileScopeWhere(scope account.ProfileScope) (string, []interface{}) {
	var frags []string
	var args []interface{}

	switch {
	case scope.All:
		frags = append(frags, "TRUE")
	case scope.SelfID != "":
		frags = append(frags, "p.id = ?")
		args = append(args, scope.SelfID)
	case scope.InstitutionID != "":
		frags = append(frags, `(p.institution_id = ? OR p.class_id IN (
			SELECT c.id FROM class c JOIN program pr ON c.program_id = pr.id
			WHERE pr.institution_id = ?))`)
		args = append(args, scope.InstitutionID, scope.InstitutionID)
	default:
		frags = append(frags, "FALSE")
	}
	if scope.Role != "" {
		frags = append(frags, "p.role = ?")
		args = append(args, string(scope.Role))
	}
	return strings.Join(frags, " AND "), args
}

func (repo accountRepository) CheckUserUniqueness(ctx context.Context, regNum, email string, excludedUsers ...account.User) error {
	exclIDs := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		exclIDs = append(exclIDs, u.ID)
	}

	check := func(column, value string, sentinel error) error {
		query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM users u WHERE u.%s = ?", column)
		args := []interface{}{value}
		if len(exclIDs) > 0 {
			q, inArgs, err := sqlx.In(query+" AND u.id NOT IN (?))", value, exclIDs)
			if err != nil {
				return errors.Wrap(err, "building uniqueness query")
			}
			query, args = q, inArgs
		} else {
			query += ")"
		}
		var exists bool
		if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if exists {
			return sentinel
		}
		return nil
	}

	if err := check("registration_number", regNum, account.ErrRegistrationNumberExists); err != nil {
		return err
	}
	if email != "" {
		return check("email", email, account.ErrEmailExists)
	}
	return nil
}

func (repo accountRepository) CheckCPFUniqueness(ctx context.Context, cpf string, excludedProfiles ...account.Profile) error {
	query := "SELECT EXISTS(SELECT 1 FROM profile p WHERE p.cpf = ?"
	args := []interface{}{cpf}
	if len(excludedProfiles) > 0 {
		ids := make([]string, 0, len(excludedProfiles))
		for _, p := range excludedProfiles {
			ids = append(ids, p.ID)
		}
		q, inArgs, err := sqlx.In(query+" AND p.id NOT IN (?))", cpf, ids)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		query, args = q, inArgs
	} else {
		query += ")"
	}
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking cpf uniqueness")
	}
	if exists {
		return account.ErrCPFExists
	}
	return nil
}

const insertUserStmt = `
	INSERT INTO users (id, registration_number, email, is_active, is_student, is_teacher, is_admin,
		password_hash, created_at, modified_at, last_login)
	VALUES (:id, :registration_number, :email, :is_active, :is_student, :is_teacher, :is_admin,
		:password_hash, :created_at, :modified_at, :last_login)`

const insertProfileStmt = `
	INSERT INTO profile (id, user_id, role, cpf, full_name, description, class_id, institution_id,
		created_at, modified_at)
	VALUES (:id, :user_id, :role, :cpf, :full_name, :description, :class_id, :institution_id,
		:created_at, :modified_at)`

func (repo accountRepository) CreateAccount(ctx context.Context, usr account.User, prof *account.Profile) (account.User, *account.Profile, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return account.User{}, nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	usr.ID = uuid.New().String()
	if _, err = tx.NamedExecContext(ctx, insertUserStmt, newUserRow(usr)); err != nil {
		return account.User{}, nil, errors.Wrap(err, "inserting user")
	}

	if prof != nil {
		p := *prof
		p.ID = uuid.New().String()
		p.UserID = usr.ID
		if _, err = tx.NamedExecContext(ctx, insertProfileStmt, newProfileRow(p)); err != nil {
			return account.User{}, nil, errors.Wrap(err, "inserting profile")
		}
		prof = &p
	}

	if err = tx.Commit(); err != nil {
		return account.User{}, nil, errors.Wrap(err, "committing account")
	}
	return usr, prof, nil
}

func (repo accountRepository) GetUser(ctx context.Context, filter account.GetFilter) (account.User, error) {
	var where string
	var arg interface{}
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return account.User{}, account.ErrNotFound
		}
		where, arg = "u.id = ?", filter.ID
	case filter.RegistrationNumber != "":
		where, arg = "u.registration_number = ?", filter.RegistrationNumber
	case filter.Email != "":
		where, arg = "u.email = ?", filter.Email
	default:
		return account.User{}, account.ErrNotFound
	}

	var row userRow
	query := "SELECT u.* FROM users u WHERE " + where
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), arg); err != nil {
		return account.User{}, trapNoRowsErr(err, "finding user")
	}
	return row.toUser(), nil
}

func (repo accountRepository) GetUserInScope(ctx context.Context, scope account.UserScope, id string) (account.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return account.User{}, account.ErrNotFound
	}
	where, args := userScopeWhere(scope)
	args = append([]interface{}{id}, args...)

	var row userRow
	query := "SELECT u.* FROM users u WHERE u.id = ? AND " + where
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), args...); err != nil {
		return account.User{}, trapNoRowsErr(err, "finding user in scope")
	}
	return row.toUser(), nil
}

func (repo accountRepository) QueryUsers(ctx context.Context, scope account.UserScope, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.User, error) {
	where, args := userScopeWhere(scope)
	frags := []string{where}

	if filter != nil {
		if filter.Search != "" {
			frags = append(frags, "(u.registration_number ILIKE ? OR u.email ILIKE ?)")
			val := "%" + filter.Search + "%"
			args = append(args, val, val)
		}
		if filter.Role != "" {
			frags = append(frags, "u.id IN (SELECT p.user_id FROM profile p WHERE p.role = ?)")
			args = append(args, string(filter.Role))
		}
		if filter.IsActive != nil {
			frags = append(frags, "u.is_active = ?")
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			frags = append(frags, "u.created_at >= ?")
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			frags = append(frags, "u.created_at <= ?")
			args = append(args, filter.CreatedTo.UTC())
		}
	}

	query := "SELECT u.* FROM users u WHERE " + strings.Join(frags, " AND ")
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, "u."+ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]account.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

const updateUserStmt = `
	UPDATE users SET email = :email, is_active = :is_active, password_hash = :password_hash,
		modified_at = :modified_at, last_login = :last_login
	WHERE id = :id`

func (repo accountRepository) UpdateUser(ctx context.Context, usr account.User, isActive *bool) (account.User, error) {
	if isActive != nil {
		usr.IsActive = isActive
	}
	res, err := repo.db.NamedExecContext(ctx, updateUserStmt, newUserRow(usr))
	if err != nil {
		return account.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.User{}, account.ErrNotFound
	}
	return usr, nil
}

func (repo accountRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// the users own their profiles, the profiles own their addresses
	query, args, err := sqlx.In(`
		DELETE FROM address
		WHERE profile_id IN (SELECT id FROM profile WHERE user_id IN (?))`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building address delete query")
	}
	if _, err = tx.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "deleting addresses")
	}

	query, args, err = sqlx.In("DELETE FROM profile WHERE user_id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building profile delete query")
	}
	if _, err = tx.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "deleting profiles")
	}

	query, args, err = sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building user delete query")
	}
	res, err := tx.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing user delete")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

func (repo accountRepository) AttachProfile(ctx context.Context, prof account.Profile) (account.Profile, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return account.Profile{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	prof.ID = uuid.New().String()
	if _, err = tx.NamedExecContext(ctx, insertProfileStmt, newProfileRow(prof)); err != nil {
		return account.Profile{}, errors.Wrap(err, "inserting profile")
	}

	var flagCol string
	switch prof.Role {
	case account.RoleStudent:
		flagCol = "is_student"
	case account.RoleTeacher:
		flagCol = "is_teacher"
	case account.RoleAdmin:
		flagCol = "is_admin"
	}
	stmt := fmt.Sprintf("UPDATE users SET %s = TRUE, modified_at = ? WHERE id = ?", flagCol)
	if _, err = tx.ExecContext(ctx, repo.db.Rebind(stmt), time.Now().UTC(), prof.UserID); err != nil {
		return account.Profile{}, errors.Wrap(err, "setting role flag")
	}

	if err = tx.Commit(); err != nil {
		return account.Profile{}, errors.Wrap(err, "committing profile")
	}
	return prof, nil
}

func (repo accountRepository) GetProfileByUserID(ctx context.Context, userID string) (account.Profile, error) {
	var row profileRow
	query := repo.db.Rebind("SELECT p.* FROM profile p WHERE p.user_id = ?")
	if err := repo.db.GetContext(ctx, &row, query, userID); err != nil {
		return account.Profile{}, trapNoRowsErr(err, "finding profile by user")
	}
	return row.toProfile(), nil
}

// GetProfileByID is an unscoped single-row lookup used by the school
// domain for teacher reference checks.
func (repo accountRepository) GetProfileByID(ctx context.Context, id string) (account.Profile, error) {
	return repo.GetProfile(ctx, account.AllProfiles(), id)
}

func (repo accountRepository) GetProfile(ctx context.Context, scope account.ProfileScope, id string) (account.Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return account.Profile{}, account.ErrNotFound
	}
	where, args := profileScopeWhere(scope)
	args = append([]interface{}{id}, args...)

	var row profileRow
	query := "SELECT p.* FROM profile p WHERE p.id = ? AND " + where
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), args...); err != nil {
		return account.Profile{}, trapNoRowsErr(err, "finding profile")
	}
	return row.toProfile(), nil
}

func (repo accountRepository) QueryProfiles(ctx context.Context, scope account.ProfileScope) ([]account.Profile, error) {
	where, args := profileScopeWhere(scope)
	query := "SELECT p.* FROM profile p WHERE " + where + " ORDER BY p.created_at"

	var rows []profileRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	profiles := make([]account.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.toProfile())
	}
	return profiles, nil
}

const updateProfileStmt = `
	UPDATE profile SET cpf = :cpf, full_name = :full_name, description = :description,
		class_id = :class_id, institution_id = :institution_id, modified_at = :modified_at
	WHERE id = :id`

func (repo accountRepository) UpdateProfile(ctx context.Context, prof account.Profile) (account.Profile, error) {
	res, err := repo.db.NamedExecContext(ctx, updateProfileStmt, newProfileRow(prof))
	if err != nil {
		return account.Profile{}, errors.Wrap(err, "updating profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.Profile{}, account.ErrNotFound
	}
	return prof, nil
}

func (repo accountRepository) DeleteProfilesByID(ctx context.Context, ids ...string) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// clear the owners' role flags before the rows go away
	query, args, err := sqlx.In(`
		UPDATE users SET is_student = FALSE, is_teacher = FALSE, is_admin = FALSE
		WHERE id IN (SELECT user_id FROM profile WHERE id IN (?))`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building flag reset query")
	}
	if _, err = tx.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "clearing role flags")
	}

	query, args, err = sqlx.In("DELETE FROM address WHERE profile_id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building address delete query")
	}
	if _, err = tx.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "deleting addresses")
	}

	query, args, err = sqlx.In("DELETE FROM profile WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building profile delete query")
	}
	res, err := tx.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting profiles")
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing profile delete")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

func addressScopeWhere(scope account.AddressScope) (string, []interface{}) {
	switch {
	case scope.All:
		return "TRUE", nil
	case scope.ProfileID != "":
		return "a.profile_id = ?", []interface{}{scope.ProfileID}
	}
	return "FALSE", nil
}

func (repo accountRepository) GetAddress(ctx context.Context, scope account.AddressScope, id string) (account.Address, error) {
	if _, err := uuid.Parse(id); err != nil {
		return account.Address{}, account.ErrNotFound
	}
	where, args := addressScopeWhere(scope)
	args = append([]interface{}{id}, args...)

	var row addressRow
	query := "SELECT a.* FROM address a WHERE a.id = ? AND " + where
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), args...); err != nil {
		return account.Address{}, trapNoRowsErr(err, "finding address")
	}
	return row.toAddress(), nil
}

func (repo accountRepository) QueryAddresses(ctx context.Context, scope account.AddressScope) ([]account.Address, error) {
	where, args := addressScopeWhere(scope)
	query := "SELECT a.* FROM address a WHERE " + where + " ORDER BY a.created_at"

	var rows []addressRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying addresses")
	}
	addrs := make([]account.Address, 0, len(rows))
	for _, r := range rows {
		addrs = append(addrs, r.toAddress())
	}
	return addrs, nil
}

const insertAddressStmt = `
	INSERT INTO address (id, profile_id, state, city, street, neighborhood, number, postal_code,
		complement, created_at, modified_at)
	VALUES (:id, :profile_id, :state, :city, :street, :neighborhood, :number, :postal_code,
		:complement, :created_at, :modified_at)`

func (repo accountRepository) CreateAddress(ctx context.Context, addr account.Address) (account.Address, error) {
	addr.ID = uuid.New().String()
	row := addressRow{
		ID:           addr.ID,
		ProfileID:    addr.ProfileID,
		State:        addr.State,
		City:         addr.City,
		Street:       addr.Street,
		Neighborhood: addr.Neighborhood,
		Number:       addr.Number,
		PostalCode:   addr.PostalCode,
		Complement:   null.NewString(addr.Complement, addr.Complement != ""),
		CreatedAt:    addr.CreatedAt.UTC(),
		ModifiedAt:   addr.ModifiedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, insertAddressStmt, row); err != nil {
		return account.Address{}, errors.Wrap(err, "inserting address")
	}
	return addr, nil
}

const updateAddressStmt = `
	UPDATE address SET state = :state, city = :city, street = :street, neighborhood = :neighborhood,
		number = :number, postal_code = :postal_code, complement = :complement, modified_at = :modified_at
	WHERE id = :id AND profile_id = :profile_id`

func (repo accountRepository) UpdateAddress(ctx context.Context, addr account.Address) (account.Address, error) {
	row := addressRow{
		ID:           addr.ID,
		ProfileID:    addr.ProfileID,
		State:        addr.State,
		City:         addr.City,
		Street:       addr.Street,
		Neighborhood: addr.Neighborhood,
		Number:       addr.Number,
		PostalCode:   addr.PostalCode,
		Complement:   null.NewString(addr.Complement, addr.Complement != ""),
		CreatedAt:    addr.CreatedAt.UTC(),
		ModifiedAt:   addr.ModifiedAt.UTC(),
	}
	res, err := repo.db.NamedExecContext(ctx, updateAddressStmt, row)
	if err != nil {
		return account.Address{}, errors.Wrap(err, "updating address")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return account.Address{}, account.ErrNotFound
	}
	return addr, nil
}

func (repo accountRepository) DeleteAddressesByID(ctx context.Context, scope account.AddressScope, ids ...string) (int, error) {
	where, scopeArgs := addressScopeWhere(scope)
	inArgs := append([]interface{}{ids}, scopeArgs...)
	query, args, err := sqlx.In("DELETE FROM address a WHERE a.id IN (?) AND "+where, inArgs...)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting addresses")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
