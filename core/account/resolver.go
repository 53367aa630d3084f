package account

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Resolved is a caller identity with its profile variant attached.
// A nil Profile means the User has not completed their profile yet;
// callers must treat that as "incomplete profile", not an error.
type Resolved struct {
	User    User
	Profile *Profile
}

func (r Resolved) HasProfile() bool { return r.Profile != nil }

func (r Resolved) IsStudent() bool { return r.Profile != nil && r.Profile.Role == RoleStudent }
func (r Resolved) IsTeacher() bool { return r.Profile != nil && r.Profile.Role == RoleTeacher }
func (r Resolved) IsAdmin() bool   { return r.Profile != nil && r.Profile.Role == RoleAdmin }

// Resolve loads the profile variant for the given User. It never fails on
// account data inconsistencies: a missing profile resolves to the
// no-profile variant, and a disagreement between the User's role flags and
// the stored discriminant is logged and resolved in favor of the
// discriminant (flags are precedence-ordered Student > Teacher > Admin
// only for reporting which flag was expected).
func (svc *Service) Resolve(ctx context.Context, usr User) (Resolved, error) {
	prof, err := svc.repo.GetProfileByUserID(ctx, usr.ID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			if _, flagged := usr.FlaggedRole(); flagged {
				svc.logger.Warn(fmt.Sprintf("user %s has a role flag but no profile", usr.ID))
			}
			return Resolved{User: usr}, nil
		}
		return Resolved{}, errors.Wrap(err, "loading profile")
	}

	if n := usr.RoleFlagCount(); n > 1 {
		svc.logger.Warn(fmt.Sprintf("user %s has %d role flags set", usr.ID, n), usr)
	}
	if flagged, ok := usr.FlaggedRole(); !ok || flagged != prof.Role {
		svc.logger.Warn(fmt.Sprintf("user %s role flags disagree with profile role %q", usr.ID, prof.Role), usr)
	}

	return Resolved{User: usr, Profile: &prof}, nil
}
