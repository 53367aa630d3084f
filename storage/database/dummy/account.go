package dummy

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/classpath/backend/core"
	"github.com/classpath/backend/core/account"
)

type AccountRepository struct {
	db *DB
}

var _ account.Repository = (*AccountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// userInScopeLocked evaluates the scope the same way the SQL repository
// renders it: institution scoping reaches teachers directly and students
// through their class's program.
func (repo *AccountRepository) userInScopeLocked(usr account.User, scope account.UserScope) bool {
	switch {
	case scope.All:
		return true
	case scope.SelfID != "":
		return usr.ID == scope.SelfID
	case scope.InstitutionID != "":
		prof, ok := repo.db.profileByUserIDLocked(usr.ID)
		if !ok {
			return false
		}
		switch prof.Role {
		case account.RoleTeacher:
			return prof.InstitutionID == scope.InstitutionID
		case account.RoleStudent:
			return repo.db.classInstitutionIDLocked(prof.ClassID) == scope.InstitutionID
		}
	}
	return false
}

func (repo *AccountRepository) profileInScopeLocked(prof account.Profile, scope account.ProfileScope) bool {
	if scope.Role != "" && prof.Role != scope.Role {
		return false
	}
	switch {
	case scope.All:
		return true
	case scope.SelfID != "":
		return prof.ID == scope.SelfID
	case scope.InstitutionID != "":
		if prof.InstitutionID == scope.InstitutionID {
			return true
		}
		return prof.ClassID != "" && repo.db.classInstitutionIDLocked(prof.ClassID) == scope.InstitutionID
	}
	return false
}

func addressInScope(addr account.Address, scope account.AddressScope) bool {
	switch {
	case scope.All:
		return true
	case scope.ProfileID != "":
		return addr.ProfileID == scope.ProfileID
	}
	return false
}

func (repo *AccountRepository) CheckUserUniqueness(ctx context.Context, regNum, email string, excludedUsers ...account.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := func(id string) bool {
		for _, u := range excludedUsers {
			if u.ID == id {
				return true
			}
		}
		return false
	}
	for _, u := range repo.db.users {
		if excluded(u.ID) {
			continue
		}
		if u.RegistrationNumber == regNum {
			return account.ErrRegistrationNumberExists
		}
		if email != "" && u.Email == email {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *AccountRepository) CheckCPFUniqueness(ctx context.Context, cpf string, excludedProfiles ...account.Profile) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := func(id string) bool {
		for _, p := range excludedProfiles {
			if p.ID == id {
				return true
			}
		}
		return false
	}
	for _, p := range repo.db.profiles {
		if excluded(p.ID) {
			continue
		}
		if p.CPF == cpf {
			return account.ErrCPFExists
		}
	}
	return nil
}

func (repo *AccountRepository) CreateAccount(ctx context.Context, usr account.User, prof *account.Profile) (account.User, *account.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = uuid.New().String()
	repo.db.users[usr.ID] = usr

	if prof != nil {
		p := *prof
		p.ID = uuid.New().String()
		p.UserID = usr.ID
		repo.db.profiles[p.ID] = p
		prof = &p
	}
	return usr, prof, nil
}

func (repo *AccountRepository) GetUser(ctx context.Context, filter account.GetFilter) (account.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return usr, nil
		}
		return account.User{}, account.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if filter.RegistrationNumber != "" && usr.RegistrationNumber == filter.RegistrationNumber {
			return usr, nil
		}
		if filter.Email != "" && usr.Email == filter.Email {
			return usr, nil
		}
	}
	return account.User{}, account.ErrNotFound
}

func (repo *AccountRepository) GetUserInScope(ctx context.Context, scope account.UserScope, id string) (account.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	usr, ok := repo.db.users[id]
	if !ok || !repo.userInScopeLocked(usr, scope) {
		return account.User{}, account.ErrNotFound
	}
	return usr, nil
}

func (repo *AccountRepository) QueryUsers(ctx context.Context, scope account.UserScope, filter *account.QueryFilter, ordering []core.DBOrdering) ([]account.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]account.User, 0)
	for _, usr := range repo.db.users {
		if !repo.userInScopeLocked(usr, scope) {
			continue
		}
		if filter != nil && !repo.matchesFilterLocked(usr, filter) {
			continue
		}
		users = append(users, usr)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (repo *AccountRepository) matchesFilterLocked(usr account.User, filter *account.QueryFilter) bool {
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.RegistrationNumber), needle) &&
			!strings.Contains(strings.ToLower(usr.Email), needle) {
			return false
		}
	}
	if filter.Role != "" {
		prof, ok := repo.db.profileByUserIDLocked(usr.ID)
		if !ok || prof.Role != filter.Role {
			return false
		}
	}
	if filter.IsActive != nil {
		if usr.IsActive == nil || *usr.IsActive != *filter.IsActive {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *AccountRepository) UpdateUser(ctx context.Context, usr account.User, isActive *bool) (account.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return account.User{}, account.ErrNotFound
	}
	if isActive != nil {
		usr.IsActive = isActive
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *AccountRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.users[id]; !ok {
			continue
		}
		if prof, ok := repo.db.profileByUserIDLocked(id); ok {
			for aid, addr := range repo.db.addresses {
				if addr.ProfileID == prof.ID {
					delete(repo.db.addresses, aid)
				}
			}
			delete(repo.db.profiles, prof.ID)
		}
		delete(repo.db.users, id)
		cnt++
	}
	return cnt, nil
}

func (repo *AccountRepository) AttachProfile(ctx context.Context, prof account.Profile) (account.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.users[prof.UserID]
	if !ok {
		return account.Profile{}, account.ErrNotFound
	}
	prof.ID = uuid.New().String()
	repo.db.profiles[prof.ID] = prof

	switch prof.Role {
	case account.RoleStudent:
		usr.IsStudent = true
	case account.RoleTeacher:
		usr.IsTeacher = true
	case account.RoleAdmin:
		usr.IsAdmin = true
	}
	repo.db.users[usr.ID] = usr
	return prof, nil
}

func (repo *AccountRepository) GetProfileByUserID(ctx context.Context, userID string) (account.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if prof, ok := repo.db.profileByUserIDLocked(userID); ok {
		return prof, nil
	}
	return account.Profile{}, account.ErrNotFound
}

// GetProfileByID is an unscoped single-row lookup used by the school
// domain for teacher reference checks.
func (repo *AccountRepository) GetProfileByID(ctx context.Context, id string) (account.Profile, error) {
	return repo.GetProfile(ctx, account.AllProfiles(), id)
}

func (repo *AccountRepository) GetProfile(ctx context.Context, scope account.ProfileScope, id string) (account.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	prof, ok := repo.db.profiles[id]
	if !ok || !repo.profileInScopeLocked(prof, scope) {
		return account.Profile{}, account.ErrNotFound
	}
	return prof, nil
}

func (repo *AccountRepository) QueryProfiles(ctx context.Context, scope account.ProfileScope) ([]account.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	profiles := make([]account.Profile, 0)
	for _, prof := range repo.db.profiles {
		if repo.profileInScopeLocked(prof, scope) {
			profiles = append(profiles, prof)
		}
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].ID < profiles[j].ID
		}
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
	return profiles, nil
}

func (repo *AccountRepository) UpdateProfile(ctx context.Context, prof account.Profile) (account.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.profiles[prof.ID]; !ok {
		return account.Profile{}, account.ErrNotFound
	}
	repo.db.profiles[prof.ID] = prof
	return prof, nil
}

func (repo *AccountRepository) DeleteProfilesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		prof, ok := repo.db.profiles[id]
		if !ok {
			continue
		}
		for aid, addr := range repo.db.addresses {
			if addr.ProfileID == id {
				delete(repo.db.addresses, aid)
			}
		}
		if usr, ok := repo.db.users[prof.UserID]; ok {
			usr.IsStudent, usr.IsTeacher, usr.IsAdmin = false, false, false
			repo.db.users[usr.ID] = usr
		}
		delete(repo.db.profiles, id)
		cnt++
	}
	return cnt, nil
}

func (repo *AccountRepository) GetAddress(ctx context.Context, scope account.AddressScope, id string) (account.Address, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	addr, ok := repo.db.addresses[id]
	if !ok || !addressInScope(addr, scope) {
		return account.Address{}, account.ErrNotFound
	}
	return addr, nil
}

func (repo *AccountRepository) QueryAddresses(ctx context.Context, scope account.AddressScope) ([]account.Address, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	addrs := make([]account.Address, 0)
	for _, addr := range repo.db.addresses {
		if addressInScope(addr, scope) {
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].CreatedAt.Equal(addrs[j].CreatedAt) {
			return addrs[i].ID < addrs[j].ID
		}
		return addrs[i].CreatedAt.Before(addrs[j].CreatedAt)
	})
	return addrs, nil
}

func (repo *AccountRepository) CreateAddress(ctx context.Context, addr account.Address) (account.Address, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	addr.ID = uuid.New().String()
	repo.db.addresses[addr.ID] = addr
	return addr, nil
}

func (repo *AccountRepository) UpdateAddress(ctx context.Context, addr account.Address) (account.Address, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.addresses[addr.ID]
	if !ok || orig.ProfileID != addr.ProfileID {
		return account.Address{}, account.ErrNotFound
	}
	repo.db.addresses[addr.ID] = addr
	return addr, nil
}

func (repo *AccountRepository) DeleteAddressesByID(ctx context.Context, scope account.AddressScope, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		addr, ok := repo.db.addresses[id]
		if !ok || !addressInScope(addr, scope) {
			continue
		}
		delete(repo.db.addresses, id)
		cnt++
	}
	return cnt, nil
}
