package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	. "github.com/classpath/backend/apps/api/echo"
	"github.com/classpath/backend/core/account"
	"github.com/classpath/backend/tests"
)

const (
	testPassword = "Str0ng!pwd"
	cpf1         = "529.982.247-25"
	cpf2         = "111.444.777-35"
	cpf3         = "390.533.447-05"
	cpf4         = "853.513.468-93"
)

// world is the standard two-institution fixture.
type world struct {
	admin1, teacher1, student1 account.Resolved
	admin2, teacher2, student2 account.Resolved
	inst1ID, inst2ID           string
	prog1ID, prog2ID           string
	class1ID, class2ID         string
}

func setupWorld(t *testing.T) world {
	resetDB()

	inst1 := testutil.CreateInstitution(t, schoolRepo, "UniOne")
	inst2 := testutil.CreateInstitution(t, schoolRepo, "UniTwo")
	prog1 := testutil.CreateProgram(t, schoolRepo, inst1.ID, "Engineering")
	prog2 := testutil.CreateProgram(t, schoolRepo, inst2.ID, "Law")
	class1 := testutil.CreateClass(t, schoolRepo, prog1.ID, "ENG-2026")
	class2 := testutil.CreateClass(t, schoolRepo, prog2.ID, "LAW-2026")

	now := time.Now().UTC()
	t1, t2, t3 := now.Add(-3*time.Hour), now.Add(-2*time.Hour), now.Add(-time.Hour)

	return world{
		admin1:   testutil.CreateAccount(t, accountRepo, "admin1", "admin1@test.cd", testPassword, cpf1, account.RoleAdmin, "", inst1.ID, true, t1),
		teacher1: testutil.CreateAccount(t, accountRepo, "teacher1", "teacher1@test.cd", testPassword, cpf2, account.RoleTeacher, "", inst1.ID, true, t2),
		student1: testutil.CreateAccount(t, accountRepo, "student1", "student1@test.cd", testPassword, cpf3, account.RoleStudent, class1.ID, "", true, t3),
		admin2:   testutil.CreateAccount(t, accountRepo, "admin2", "admin2@test.cd", testPassword, "048.847.673-38", account.RoleAdmin, "", inst2.ID, true, t1),
		teacher2: testutil.CreateAccount(t, accountRepo, "teacher2", "teacher2@test.cd", testPassword, "871.364.788-91", account.RoleTeacher, "", inst2.ID, true, t2),
		student2: testutil.CreateAccount(t, accountRepo, "student2", "student2@test.cd", testPassword, cpf4, account.RoleStudent, class2.ID, "", true, t3),
		inst1ID:  inst1.ID,
		inst2ID:  inst2.ID,
		prog1ID:  prog1.ID,
		prog2ID:  prog2.ID,
		class1ID: class1.ID,
		class2ID: class2.ID,
	}
}

func Test_accountApi_signup(t *testing.T) {
	w := setupWorld(t)

	body := func(regNum, email, pwd, cpf string, role account.Role, classID string) []byte {
		na := map[string]interface{}{
			"registration_number": regNum,
			"email":               email,
			"password":            pwd,
			"confirm_password":    pwd,
			"cpf":                 cpf,
			"class_id":            classID,
		}
		switch role {
		case account.RoleStudent:
			na["is_student"] = true
		case account.RoleTeacher:
			na["is_teacher"] = true
		case account.RoleAdmin:
			na["is_admin"] = true
		}
		return marchallObj(t, na)
	}

	tests := []httpTest{
		{
			name: "More than one role refused",
			body: marchallObj(t, map[string]interface{}{
				"registration_number": "bob", "email": "bob@test.cd",
				"password": testPassword, "confirm_password": testPassword,
				"cpf": "263.943.950-92", "class_id": w.class1ID,
				"is_student": true, "is_teacher": true,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "a user cannot hold more than one role"}),
		},
		{
			name:     "CPF required with a role",
			body:     body("bob", "bob@test.cd", testPassword, "", account.RoleAdmin, ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"cpf": "a CPF is required for this role"}),
		},
		{
			name:     "Class required for students",
			body:     body("bob", "bob@test.cd", testPassword, "263.943.950-92", account.RoleStudent, ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class_id": "a class is required for students"}),
		},
		{
			name:     "Invalid CPF",
			body:     body("bob", "bob@test.cd", testPassword, "not-a-cpf", account.RoleAdmin, ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"cpf": "invalid CPF"}),
		},
		{
			name: "Password mismatch",
			body: marchallObj(t, map[string]interface{}{
				"registration_number": "bob", "email": "bob@test.cd",
				"password": testPassword, "confirm_password": "Other0!pwd",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"confirm_password": "confirm_password must be equal to Password"}),
		},
		{
			name:     "Weak password",
			body:     body("bob", "bob@test.cd", "alllowercase1!", "", "", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			}),
		},
		{
			name:     "Unknown class",
			body:     body("bob", "bob@test.cd", testPassword, "263.943.950-92", account.RoleStudent, "deadbeef"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class_id": "class not found"}),
		},
		{
			name:     "Duplicate registration number",
			body:     body("admin1", "bob@test.cd", testPassword, "", "", ""),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]string{"registration_number": "a user with this registration number already exists"}),
		},
		{
			name:     "Duplicate email",
			body:     body("bob", "admin1@test.cd", testPassword, "", "", ""),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name:     "Duplicate CPF",
			body:     body("bob", "bob@test.cd", testPassword, cpf1, account.RoleAdmin, ""),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]string{"cpf": "a profile with this CPF already exists"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/my-account", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Plain user created without profile", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/my-account", body("  Bob ", "BOB@Test.CD", testPassword, "", "", ""))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp CreatedAccountResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if resp.Token == "" {
			t.Error("failed! empty token")
		}
		if resp.User.RegistrationNumber != "bob" || resp.User.Email != "bob@test.cd" {
			t.Errorf("failed! user not cleaned: %+v", resp.User)
		}
		if resp.Profile != nil {
			t.Errorf("failed! unexpected profile: %+v", resp.Profile)
		}
	})

	t.Run("Student account created with profile", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/my-account", body("alice", "alice@test.cd", testPassword, "263.943.950-92", account.RoleStudent, w.class1ID))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp CreatedAccountResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if resp.Profile == nil {
			t.Fatal("failed! missing profile")
		}
		if resp.Profile.Role != account.RoleStudent || resp.Profile.ClassID != w.class1ID {
			t.Errorf("failed! profile = %+v", resp.Profile)
		}
	})
}

func Test_accountApi_login(t *testing.T) {
	w := setupWorld(t)
	testutil.CreateAccount(t, accountRepo, "ndog", "ndog@test.cd", testPassword, "263.943.950-92", account.RoleStudent, w.class1ID, "", false)

	body := func(regNum, pwd string) []byte {
		return marchallObj(t, LoginRequest{RegistrationNumber: regNum, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Registration number and password required", body: []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"registration_number": "this field is required",
				"password":            "this field is required",
			}),
		},
		{
			name: "Unknown registration number", body: body("ghost", testPassword),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", body: body("student1", "Wrong0!pwd"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", body: body("ndog", testPassword),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Login ok", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/login", body("Student1", testPassword)) // regnum is cleaned
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if resp.Token == "" {
			t.Error("failed! empty token")
		}
	})
}

func Test_accountApi_tokenRefresh(t *testing.T) {
	w := setupWorld(t)
	inactive := testutil.CreateAccount(t, accountRepo, "ndog", "ndog@test.cd", testPassword, "263.943.950-92", account.RoleStudent, w.class1ID, "", false)

	now := time.Now()
	unrefreshableClaims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   w.student1.User.ID,
			Audience:  "ClassPath",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsStudent:    true,
	}
	unrefreshableToken, err := GenerateToken(conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, inactive), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, w.student1), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/token-refresh", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Errorf("json.Unmarshal(): %v", err)
				}
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_myAccount(t *testing.T) {
	w := setupWorld(t)
	plain := account.Resolved{User: testutil.CreateUser(t, accountRepo, "plain", "plain@test.cd", testPassword, true)}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Account with profile", token: getToken(t, w.student1), wantCode: http.StatusOK,
			wantData: marchallObj(t, MyAccountResponse{User: w.student1.User, Profile: w.student1.Profile}),
		},
		{
			name: "Account without profile", token: getToken(t, plain), wantCode: http.StatusOK,
			wantData: marchallObj(t, MyAccountResponse{User: plain.User}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/my-account", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_myProfile(t *testing.T) {
	w := setupWorld(t)
	plain := account.Resolved{User: testutil.CreateUser(t, accountRepo, "plain", "plain@test.cd", testPassword, true)}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "No profile yet", token: getToken(t, plain), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Teacher profile", token: getToken(t, w.teacher1), wantCode: http.StatusOK, wantData: marchallObj(t, w.teacher1.Profile)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/my-profile", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Update own profile", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"full_name": "Teacher One", "description": "maths"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/my-profile", getToken(t, w.teacher1), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var prof account.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &prof); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if prof.FullName != "Teacher One" || prof.Description != "maths" {
			t.Errorf("failed! profile = %+v", prof)
		}
		if prof.CPF != w.teacher1.Profile.CPF { // unchanged when omitted
			t.Errorf("failed! cpf = %v", prof.CPF)
		}
	})
}

func Test_accountApi_userQuery(t *testing.T) {
	w := setupWorld(t)
	// a user with no ties to any institution is invisible to every admin
	testutil.CreateUser(t, accountRepo, "loner", "loner@test.cd", testPassword, true)

	noInstAdmin := testutil.CreateAccount(t, accountRepo, "admin3", "admin3@test.cd", testPassword, "670.729.330-60", account.RoleAdmin, "", "", true)

	path := func(search, role string, isActive *bool, createdFrom time.Time) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if role != "" {
			v.Add("role", role)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		if !createdFrom.IsZero() {
			v.Add("created_from", createdFrom.Format(time.RFC3339))
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	admin1Token := getToken(t, w.admin1)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", path: "/v1/users", token: getToken(t, w.student1), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "Admin sees own institution only", path: "/v1/users", token: admin1Token,
			wantData: marchallList(t, w.teacher1.User, w.student1.User),
		},
		{
			name: "Other admin sees the other institution", path: "/v1/users", token: getToken(t, w.admin2),
			wantData: marchallList(t, w.teacher2.User, w.student2.User),
		},
		{name: "Admin without institution sees nothing", path: "/v1/users", token: getToken(t, noInstAdmin), wantData: empty},
		{name: "search (unknown)", path: path("ghost", "", nil, time.Time{}), token: admin1Token, wantData: empty},
		{name: "search=teach", path: path("teach", "", nil, time.Time{}), token: admin1Token, wantData: marchallList(t, w.teacher1.User)},
		{name: "role=student", path: path("", "student", nil, time.Time{}), token: admin1Token, wantData: marchallList(t, w.student1.User)},
		{name: "role=teacher", path: path("", "teacher", nil, time.Time{}), token: admin1Token, wantData: marchallList(t, w.teacher1.User)},
		{name: "is_active=false", path: path("", "", bPtr(false), time.Time{}), token: admin1Token, wantData: empty},
		{
			name: "created_from", path: path("", "", nil, w.student1.User.CreatedAt),
			token: admin1Token, wantData: marchallList(t, w.student1.User),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_userRetrieve(t *testing.T) {
	w := setupWorld(t)

	path := func(id string) string { return fmt.Sprintf("/v1/users/%s", id) }

	tests := []httpTest{
		{name: "Auth required", path: path(w.teacher1.User.ID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", path: path(w.teacher1.User.ID), token: getToken(t, w.teacher1), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "Own institution teacher", path: path(w.teacher1.User.ID), token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallObj(t, w.teacher1.User),
		},
		{
			name: "Own institution student", path: path(w.student1.User.ID), token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallObj(t, w.student1.User),
		},
		// rows outside the caller's scope read as absent, not forbidden
		{name: "Other institution reads as absent", path: path(w.teacher2.User.ID), token: getToken(t, w.admin1), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Unknown user", path: path("deadbeef"), token: getToken(t, w.admin1), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_userUpdate(t *testing.T) {
	w := setupWorld(t)

	path := func(id string) string { return fmt.Sprintf("/v1/users/%s", id) }

	t.Run("Self update", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "new.student1@test.cd"})
		req, rec := newAuthRequest(http.MethodPut, path(w.student1.User.ID), getToken(t, w.student1), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var usr account.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if usr.Email != "new.student1@test.cd" {
			t.Errorf("failed! email = %v", usr.Email)
		}
	})

	t.Run("Non-admin cannot update others", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "hax@test.cd"})
		req, rec := newAuthRequest(http.MethodPut, path(w.teacher1.User.ID), getToken(t, w.student1), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("Non-admin cannot deactivate", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"is_active": false})
		req, rec := newAuthRequest(http.MethodPut, path(w.student1.User.ID), getToken(t, w.student1), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("Admin deactivates a scoped user", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"is_active": false})
		req, rec := newAuthRequest(http.MethodPut, path(w.student1.User.ID), getToken(t, w.admin1), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var usr account.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if usr.IsActive == nil || *usr.IsActive {
			t.Errorf("failed! is_active = %v", usr.IsActive)
		}
	})

	t.Run("Admin cannot update another institution", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "hax@test.cd"})
		req, rec := newAuthRequest(http.MethodPut, path(w.teacher2.User.ID), getToken(t, w.admin1), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})
}

func Test_accountApi_userDestroy(t *testing.T) {
	w := setupWorld(t)
	addr := testutil.CreateAddress(t, accountRepo, w.teacher1.Profile.ID, "Sao Paulo")

	path := func(ids ...string) string {
		v := make(url.Values)
		for _, id := range ids {
			v.Add("id", id)
		}
		return "/v1/users?" + v.Encode()
	}

	tests := []httpTest{
		{name: "Admin required", path: path(w.teacher1.User.ID), token: getToken(t, w.teacher1), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "No IDs is a no-op", path: "/v1/users", token: getToken(t, w.admin1), wantCode: http.StatusNoContent},
		{name: "Self deletion refused", path: path(w.admin1.User.ID), token: getToken(t, w.admin1), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Other institution refused", path: path(w.student2.User.ID), token: getToken(t, w.admin1), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Unknown target", path: path("deadbeef"), token: getToken(t, w.admin1), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{name: "Scoped targets deleted", path: path(w.teacher1.User.ID, w.student1.User.ID), token: getToken(t, w.admin1), wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusNoContent {
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	if _, err := accountRepo.GetUser(context.Background(), account.GetFilter{ID: w.teacher1.User.ID}); err != account.ErrNotFound {
		t.Errorf("teacher1 still present; err %v", err)
	}
	if _, err := accountRepo.GetProfileByUserID(context.Background(), w.student1.User.ID); err != account.ErrNotFound {
		t.Errorf("student1 profile still present; err %v", err)
	}
	if _, err := accountRepo.GetProfileByUserID(context.Background(), w.teacher1.User.ID); err != account.ErrNotFound {
		t.Errorf("teacher1 profile still present; err %v", err)
	}
	if _, err := accountRepo.GetAddress(context.Background(), account.AddressScope{All: true}, addr.ID); err != account.ErrNotFound {
		t.Errorf("teacher1 address still present; err %v", err)
	}
}

func Test_accountApi_profiles(t *testing.T) {
	w := setupWorld(t)

	// profile-less users waiting for an admin to attach their role
	candidate1 := testutil.CreateUser(t, accountRepo, "cand1", "cand1@test.cd", testPassword, true)
	candidate2 := testutil.CreateUser(t, accountRepo, "cand2", "cand2@test.cd", testPassword, true)

	newProfile := func(userID, cpf, classID string) []byte {
		return marchallObj(t, map[string]string{"user": userID, "cpf": cpf, "class_id": classID, "full_name": "Candidate"})
	}

	tests := []httpTest{
		{
			name: "Admin required", method: http.MethodGet, path: "/v1/teachers", token: getToken(t, w.teacher1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Teachers of own institution", method: http.MethodGet, path: "/v1/teachers", token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallList(t, *w.teacher1.Profile),
		},
		{
			name: "Students of own institution", method: http.MethodGet, path: "/v1/students", token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallList(t, *w.student1.Profile),
		},
		{
			name: "Retrieve scoped teacher", method: http.MethodGet, path: "/v1/teachers/" + w.teacher1.Profile.ID, token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallObj(t, *w.teacher1.Profile),
		},
		{
			name: "Other institution teacher reads as absent", method: http.MethodGet, path: "/v1/teachers/" + w.teacher2.Profile.ID, token: getToken(t, w.admin1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Student under the wrong role reads as absent", method: http.MethodGet, path: "/v1/teachers/" + w.student1.Profile.ID, token: getToken(t, w.admin1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Student needs a class", method: http.MethodPost, path: "/v1/students", token: getToken(t, w.admin1),
			body:     newProfile(candidate1.ID, "263.943.950-92", ""),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"class_id": "a class is required for students"}),
		},
		{
			name: "Student class must exist", method: http.MethodPost, path: "/v1/students", token: getToken(t, w.admin1),
			body:     newProfile(candidate1.ID, "263.943.950-92", "no-such-class"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"class_id": "class not found"}),
		},
		{
			name: "Student class must belong to the admin institution", method: http.MethodPost, path: "/v1/students", token: getToken(t, w.admin1),
			body:     newProfile(candidate1.ID, "263.943.950-92", w.class2ID),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Attach to a user that already has a profile", method: http.MethodPost, path: "/v1/teachers", token: getToken(t, w.admin1),
			body:     newProfile(w.student1.User.ID, "263.943.950-92", ""),
			wantCode: http.StatusConflict, wantData: marchallObj(t, map[string]string{"user": "user already has a profile"}),
		},
		{
			name: "Duplicate CPF", method: http.MethodPost, path: "/v1/teachers", token: getToken(t, w.admin1),
			body:     newProfile(candidate1.ID, cpf1, ""),
			wantCode: http.StatusConflict, wantData: marchallObj(t, map[string]string{"cpf": "a profile with this CPF already exists"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Teacher created with inherited institution", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", getToken(t, w.admin1), newProfile(candidate1.ID, "263.943.950-92", ""))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var prof account.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &prof); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if prof.Role != account.RoleTeacher || prof.InstitutionID != w.inst1ID {
			t.Errorf("failed! profile = %+v", prof)
		}

		// the owning user's role flag was set in the same transaction
		usr, err := accountRepo.GetUser(context.Background(), account.GetFilter{ID: candidate1.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		if !usr.IsTeacher {
			t.Error("failed! is_teacher flag not set")
		}
	})

	t.Run("Student created in a scoped class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", getToken(t, w.admin1), newProfile(candidate2.ID, "670.729.330-60", w.class1ID))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var prof account.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &prof); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if prof.Role != account.RoleStudent || prof.ClassID != w.class1ID {
			t.Errorf("failed! profile = %+v", prof)
		}
	})

	t.Run("Update scoped student", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"full_name": "Student One"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/students/"+w.student1.Profile.ID, getToken(t, w.admin1), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var prof account.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &prof); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if prof.FullName != "Student One" {
			t.Errorf("failed! full_name = %v", prof.FullName)
		}
	})

	t.Run("Update other institution refused", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"full_name": "Hax"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/students/"+w.student2.Profile.ID, getToken(t, w.admin1), body)
		app.ServeHTTP(rec, req)
		// out-of-scope lookups read as absent before any mutation is attempted
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("Destroy scoped student clears the user flag", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/students?id="+w.student1.Profile.ID, getToken(t, w.admin1))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if _, err := accountRepo.GetProfileByUserID(context.Background(), w.student1.User.ID); err != account.ErrNotFound {
			t.Errorf("profile still present; err %v", err)
		}
		usr, err := accountRepo.GetUser(context.Background(), account.GetFilter{ID: w.student1.User.ID})
		if err != nil {
			t.Fatalf("GetUser(): %v", err)
		}
		if usr.IsStudent {
			t.Error("failed! is_student flag not cleared")
		}
	})
}

func Test_accountApi_addresses(t *testing.T) {
	w := setupWorld(t)
	plain := account.Resolved{User: testutil.CreateUser(t, accountRepo, "plain", "plain@test.cd", testPassword, true)}

	addr1 := testutil.CreateAddress(t, accountRepo, w.student1.Profile.ID, "Campinas")
	addr2 := testutil.CreateAddress(t, accountRepo, w.teacher1.Profile.ID, "Santos")

	newAddr := marchallObj(t, map[string]interface{}{
		"state": "SP", "city": "Sao Paulo", "street": "Rua Augusta",
		"neighborhood": "Consolacao", "number": 101, "postal_code": "01305-000",
	})

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/addresses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Profile required to create", method: http.MethodPost, path: "/v1/addresses", token: getToken(t, plain), body: newAddr,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"profile": "a completed profile is required"}),
		},
		{
			name: "Own addresses only", method: http.MethodGet, path: "/v1/addresses", token: getToken(t, w.student1),
			wantCode: http.StatusOK, wantData: marchallList(t, addr1),
		},
		{name: "No profile, no addresses", method: http.MethodGet, path: "/v1/addresses", token: getToken(t, plain), wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)},
		{
			name: "Retrieve own", method: http.MethodGet, path: "/v1/addresses/" + addr1.ID, token: getToken(t, w.student1),
			wantCode: http.StatusOK, wantData: marchallObj(t, addr1),
		},
		// even an admin cannot read someone else's address
		{
			name: "Another profile's address reads as absent", method: http.MethodGet, path: "/v1/addresses/" + addr2.ID, token: getToken(t, w.admin1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Create own address", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/addresses", getToken(t, w.student1), newAddr)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var addr account.Address
		if err := json.Unmarshal(rec.Body.Bytes(), &addr); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if addr.State != "sp" || addr.City != "Sao Paulo" {
			t.Errorf("failed! address = %+v", addr)
		}
	})

	t.Run("Update own address", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"number": 7})
		req, rec := newAuthRequest(http.MethodPut, "/v1/addresses/"+addr1.ID, getToken(t, w.student1), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var addr account.Address
		if err := json.Unmarshal(rec.Body.Bytes(), &addr); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if addr.Number != 7 || addr.City != addr1.City {
			t.Errorf("failed! address = %+v", addr)
		}
	})

	t.Run("Destroy own address", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/addresses?id="+addr1.ID, getToken(t, w.student1))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Destroy another profile's address refused", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/addresses?id="+addr2.ID, getToken(t, w.student1))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})
}
