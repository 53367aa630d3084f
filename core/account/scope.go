package account

// Scope predicates over account entities. A scope is a declarative
// description of the rows a caller may see; repositories translate it
// to their own query language. The zero value of every scope matches
// nothing, so forgetting to build one fails closed.

type (
	// UserScope selects visible Users.
	UserScope struct {
		All bool // unrestricted (internal use only)
		// SelfID selects the caller's own row.
		SelfID string
		// InstitutionID selects teachers of the institution plus
		// students of any class under any of its programs.
		InstitutionID string
	}

	// ProfileScope selects visible Profiles, optionally narrowed to a Role.
	ProfileScope struct {
		All bool
		// SelfID selects the caller's own profile.
		SelfID string
		// InstitutionID selects profiles transitively under the
		// institution: teachers/admins directly, students via their class.
		InstitutionID string
		Role          Role
	}

	// AddressScope selects visible Addresses.
	AddressScope struct {
		All bool
		// ProfileID selects addresses owned by the profile.
		ProfileID string
	}
)

func (s UserScope) IsEmpty() bool {
	return !s.All && s.SelfID == "" && s.InstitutionID == ""
}

func (s ProfileScope) IsEmpty() bool {
	return !s.All && s.SelfID == "" && s.InstitutionID == ""
}

func (s AddressScope) IsEmpty() bool {
	return !s.All && s.ProfileID == ""
}

// AllUsers is the unrestricted scope; reserved for internal callers
// (CLI, tests), never handed to request handlers.
func AllUsers() UserScope { return UserScope{All: true} }

func AllProfiles() ProfileScope { return ProfileScope{All: true} }

// ScopeUsers computes the User rows visible to the caller.
// Admins see teachers of their institution and students of classes under
// it; everyone else sees only themselves.
func ScopeUsers(caller Resolved) UserScope {
	if caller.IsAdmin() {
		if inst := caller.Profile.InstitutionID; inst != "" {
			return UserScope{InstitutionID: inst}
		}
		return UserScope{} // admin without institution sees nothing yet
	}
	return UserScope{SelfID: caller.User.ID}
}

// ScopeProfiles computes the Profile rows of the given role visible to
// the caller. Admin-only; any other caller gets the empty scope.
func ScopeProfiles(caller Resolved, role Role) ProfileScope {
	if !caller.IsAdmin() {
		return ProfileScope{}
	}
	inst := caller.Profile.InstitutionID
	if inst == "" {
		return ProfileScope{}
	}
	return ProfileScope{InstitutionID: inst, Role: role}
}

// ScopeAddresses computes the Address rows visible to the caller:
// always and only the caller's own profile's addresses.
func ScopeAddresses(caller Resolved) AddressScope {
	if !caller.HasProfile() {
		return AddressScope{}
	}
	return AddressScope{ProfileID: caller.Profile.ID}
}
