package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/classpath/backend/core/account"
	"github.com/classpath/backend/core/school"
	"github.com/classpath/backend/tests"
)

func Test_schoolApi_institutions(t *testing.T) {
	w := setupWorld(t)
	plain := account.Resolved{User: testutil.CreateUser(t, accountRepo, "plain", "plain@test.cd", testPassword, true)}

	inst1, err := schoolRepo.GetInstitution(context.Background(), school.AllInstitutions(), w.inst1ID)
	if err != nil {
		t.Fatalf("GetInstitution(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/institutions", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required to list", method: http.MethodGet, path: "/v1/institutions", token: getToken(t, w.student1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Admin required to create", method: http.MethodPost, path: "/v1/institutions", token: getToken(t, w.teacher1),
			body: marchallObj(t, map[string]string{"name": "Hax U"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Name required", method: http.MethodPost, path: "/v1/institutions", token: getToken(t, w.admin1), body: []byte("{}"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "Admin sees own institution only", method: http.MethodGet, path: "/v1/institutions", token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallList(t, inst1),
		},
		{
			name: "Retrieve own", method: http.MethodGet, path: "/v1/institutions/" + w.inst1ID, token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallObj(t, inst1),
		},
		{
			name: "Other institution reads as absent", method: http.MethodGet, path: "/v1/institutions/" + w.inst2ID, token: getToken(t, w.admin1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "My institution as admin", method: http.MethodGet, path: "/v1/my-institution", token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallObj(t, inst1),
		},
		{
			name: "My institution as teacher", method: http.MethodGet, path: "/v1/my-institution", token: getToken(t, w.teacher1),
			wantCode: http.StatusOK, wantData: marchallObj(t, inst1),
		},
		// students reach their institution through their class
		{
			name: "My institution as student", method: http.MethodGet, path: "/v1/my-institution", token: getToken(t, w.student1),
			wantCode: http.StatusOK, wantData: marchallObj(t, inst1),
		},
		{
			name: "My institution without profile", method: http.MethodGet, path: "/v1/my-institution", token: getToken(t, plain),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Update other institution refused", method: http.MethodPut, path: "/v1/institutions/" + w.inst2ID, token: getToken(t, w.admin1),
			body: marchallObj(t, map[string]string{"name": "Hax U"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Delete other institution refused", method: http.MethodDelete, path: "/v1/institutions?id=" + w.inst2ID, token: getToken(t, w.admin1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Creation assigns the institution to the admin", func(t *testing.T) {
		// an admin fresh from signup has no institution yet
		admin3 := testutil.CreateAccount(t, accountRepo, "admin3", "admin3@test.cd", testPassword, "670.729.330-60", account.RoleAdmin, "", "", true)

		body := marchallObj(t, map[string]string{"name": "UniThree", "description": "the third one"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/institutions", getToken(t, admin3), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var inst school.Institution
		if err := json.Unmarshal(rec.Body.Bytes(), &inst); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if inst.Name != "UniThree" {
			t.Errorf("failed! institution = %+v", inst)
		}

		prof, err := accountRepo.GetProfileByID(context.Background(), admin3.Profile.ID)
		if err != nil {
			t.Fatalf("GetProfileByID(): %v", err)
		}
		if prof.InstitutionID != inst.ID {
			t.Errorf("admin profile not re-pointed; institution = %v, want %v", prof.InstitutionID, inst.ID)
		}
	})

	t.Run("Update own institution", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"name": "UniOne Renamed"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/institutions/"+w.inst1ID, getToken(t, w.admin1), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var inst school.Institution
		if err := json.Unmarshal(rec.Body.Bytes(), &inst); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if inst.Name != "UniOne Renamed" {
			t.Errorf("failed! institution = %+v", inst)
		}
	})

	t.Run("Delete own institution cascades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/institutions?id="+w.inst1ID, getToken(t, w.admin1))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if ok, _ := schoolRepo.InstitutionExists(context.Background(), w.inst1ID); ok {
			t.Error("institution still present")
		}
		if ok, _ := schoolRepo.ClassExists(context.Background(), w.class1ID); ok {
			t.Error("class not cascaded")
		}
		if _, err := schoolRepo.ProgramInstitutionID(context.Background(), w.prog1ID); err != school.ErrNotFound {
			t.Errorf("program not cascaded; err %v", err)
		}
	})
}

func Test_schoolApi_programs(t *testing.T) {
	w := setupWorld(t)
	testutil.CreateCourse(t, schoolRepo, w.class1ID, w.prog1ID, w.teacher1.Profile.ID, "Algebra")

	prog1, err := schoolRepo.GetProgram(context.Background(), school.AllPrograms(), w.prog1ID)
	if err != nil {
		t.Fatalf("GetProgram(): %v", err)
	}
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/programs", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin sees institution programs", method: http.MethodGet, path: "/v1/programs", token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallList(t, prog1),
		},
		// teachers see the programs their courses belong to
		{
			name: "Teacher sees taught programs", method: http.MethodGet, path: "/v1/programs", token: getToken(t, w.teacher1),
			wantCode: http.StatusOK, wantData: marchallList(t, prog1),
		},
		{
			name: "Teacher without courses sees nothing", method: http.MethodGet, path: "/v1/programs", token: getToken(t, w.teacher2),
			wantCode: http.StatusOK, wantData: empty,
		},
		{
			name: "Student sees own program", method: http.MethodGet, path: "/v1/my-programs", token: getToken(t, w.student1),
			wantCode: http.StatusOK, wantData: marchallList(t, prog1),
		},
		{
			name: "Retrieve in scope", method: http.MethodGet, path: "/v1/programs/" + w.prog1ID, token: getToken(t, w.student1),
			wantCode: http.StatusOK, wantData: marchallObj(t, prog1),
		},
		{
			name: "Other institution program reads as absent", method: http.MethodGet, path: "/v1/programs/" + w.prog2ID, token: getToken(t, w.admin1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Admin required to create", method: http.MethodPost, path: "/v1/programs", token: getToken(t, w.teacher1),
			body: marchallObj(t, map[string]string{"name": "Hax"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Name required", method: http.MethodPost, path: "/v1/programs", token: getToken(t, w.admin1), body: []byte("{}"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "Explicit foreign institution refused", method: http.MethodPost, path: "/v1/programs", token: getToken(t, w.admin1),
			body:     marchallObj(t, map[string]string{"name": "Medicine", "institution": w.inst2ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Update other institution refused", method: http.MethodPut, path: "/v1/programs/" + w.prog2ID, token: getToken(t, w.admin1),
			body: marchallObj(t, map[string]string{"name": "Hax"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Delete other institution refused", method: http.MethodDelete, path: "/v1/programs?id=" + w.prog2ID, token: getToken(t, w.admin1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Create under own institution", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"name": "Medicine"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/programs", getToken(t, w.admin1), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var prog school.Program
		if err := json.Unmarshal(rec.Body.Bytes(), &prog); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if prog.InstitutionID != w.inst1ID || prog.Name != "Medicine" {
			t.Errorf("failed! program = %+v", prog)
		}
	})

	t.Run("Delete own program cascades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/programs?id="+w.prog1ID, getToken(t, w.admin1))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if ok, _ := schoolRepo.ClassExists(context.Background(), w.class1ID); ok {
			t.Error("class not cascaded")
		}
	})
}

func Test_schoolApi_classes(t *testing.T) {
	w := setupWorld(t)
	testutil.CreateCourse(t, schoolRepo, w.class1ID, w.prog1ID, w.teacher1.Profile.ID, "Algebra")

	class1, err := schoolRepo.GetClass(context.Background(), school.AllClasses(), w.class1ID)
	if err != nil {
		t.Fatalf("GetClass(): %v", err)
	}
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/classes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin sees institution classes", method: http.MethodGet, path: "/v1/classes", token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallList(t, class1),
		},
		{
			name: "Teacher sees taught classes", method: http.MethodGet, path: "/v1/my-classes", token: getToken(t, w.teacher1),
			wantCode: http.StatusOK, wantData: marchallList(t, class1),
		},
		{
			name: "Teacher without courses sees nothing", method: http.MethodGet, path: "/v1/my-classes", token: getToken(t, w.teacher2),
			wantCode: http.StatusOK, wantData: empty,
		},
		{
			name: "Student sees own class", method: http.MethodGet, path: "/v1/classes", token: getToken(t, w.student1),
			wantCode: http.StatusOK, wantData: marchallList(t, class1),
		},
		{
			name: "My class as student", method: http.MethodGet, path: "/v1/my-class", token: getToken(t, w.student1),
			wantCode: http.StatusOK, wantData: marchallObj(t, class1),
		},
		{
			name: "My class as teacher", method: http.MethodGet, path: "/v1/my-class", token: getToken(t, w.teacher1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Other institution class reads as absent", method: http.MethodGet, path: "/v1/classes/" + w.class2ID, token: getToken(t, w.student1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Admin required to create", method: http.MethodPost, path: "/v1/classes", token: getToken(t, w.student1),
			body:     marchallObj(t, map[string]string{"name": "Hax", "program": w.prog1ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Program required", method: http.MethodPost, path: "/v1/classes", token: getToken(t, w.admin1),
			body:     marchallObj(t, map[string]string{"name": "ENG-2027"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"program": "this field is required"}),
		},
		{
			name: "Unknown program", method: http.MethodPost, path: "/v1/classes", token: getToken(t, w.admin1),
			body:     marchallObj(t, map[string]string{"name": "ENG-2027", "program": "deadbeef"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Foreign program refused", method: http.MethodPost, path: "/v1/classes", token: getToken(t, w.admin1),
			body:     marchallObj(t, map[string]string{"name": "ENG-2027", "program": w.prog2ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Update other institution refused", method: http.MethodPut, path: "/v1/classes/" + w.class2ID, token: getToken(t, w.admin1),
			body: marchallObj(t, map[string]string{"name": "Hax"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Create under own program", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"name": "ENG-2027", "program": w.prog1ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", getToken(t, w.admin1), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var cls school.Class
		if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if cls.ProgramID != w.prog1ID || cls.Name != "ENG-2027" {
			t.Errorf("failed! class = %+v", cls)
		}
	})

	t.Run("Delete own class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes?id="+w.class1ID, getToken(t, w.admin1))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if ok, _ := schoolRepo.ClassExists(context.Background(), w.class1ID); ok {
			t.Error("class still present")
		}
	})
}

func Test_schoolApi_courses(t *testing.T) {
	w := setupWorld(t)
	course1 := testutil.CreateCourse(t, schoolRepo, w.class1ID, w.prog1ID, w.teacher1.Profile.ID, "Algebra")
	course2 := testutil.CreateCourse(t, schoolRepo, w.class2ID, w.prog2ID, w.teacher2.Profile.ID, "Torts")

	newCourse := func(name, classID, progID, teacherID string) []byte {
		return marchallObj(t, map[string]string{"name": name, "class_id": classID, "program": progID, "teacher": teacherID})
	}

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin sees institution courses", method: http.MethodGet, path: "/v1/courses", token: getToken(t, w.admin1),
			wantCode: http.StatusOK, wantData: marchallList(t, course1),
		},
		{
			name: "Teacher sees own courses", method: http.MethodGet, path: "/v1/my-courses", token: getToken(t, w.teacher1),
			wantCode: http.StatusOK, wantData: marchallList(t, course1),
		},
		{
			name: "Student sees class courses", method: http.MethodGet, path: "/v1/my-courses", token: getToken(t, w.student1),
			wantCode: http.StatusOK, wantData: marchallList(t, course1),
		},
		{
			name: "Other teacher sees their own", method: http.MethodGet, path: "/v1/courses", token: getToken(t, w.teacher2),
			wantCode: http.StatusOK, wantData: marchallList(t, course2),
		},
		{
			name: "Student retrieves own class course", method: http.MethodGet, path: "/v1/courses/" + course1.ID, token: getToken(t, w.student1),
			wantCode: http.StatusOK, wantData: marchallObj(t, course1),
		},
		// a course outside the student's class reads as absent, never forbidden
		{
			name: "Out-of-class course reads as absent", method: http.MethodGet, path: "/v1/courses/" + course2.ID, token: getToken(t, w.student1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Out-of-scope course reads as absent for teachers", method: http.MethodGet, path: "/v1/courses/" + course2.ID, token: getToken(t, w.teacher1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Admin required to create", method: http.MethodPost, path: "/v1/courses", token: getToken(t, w.teacher1),
			body:     newCourse("Hax", w.class1ID, w.prog1ID, w.teacher1.Profile.ID),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "All references required", method: http.MethodPost, path: "/v1/courses", token: getToken(t, w.admin1), body: []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":     "this field is required",
				"class_id": "this field is required",
				"program":  "this field is required",
				"teacher":  "this field is required",
			}),
		},
		{
			name: "Foreign program refused", method: http.MethodPost, path: "/v1/courses", token: getToken(t, w.admin1),
			body:     newCourse("Contracts", w.class2ID, w.prog2ID, w.teacher2.Profile.ID),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Class must belong to the program", method: http.MethodPost, path: "/v1/courses", token: getToken(t, w.admin1),
			body:     newCourse("Geometry", w.class2ID, w.prog1ID, w.teacher1.Profile.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"class_id": "class does not belong to this program"}),
		},
		{
			name: "Teacher of another institution refused", method: http.MethodPost, path: "/v1/courses", token: getToken(t, w.admin1),
			body:     newCourse("Geometry", w.class1ID, w.prog1ID, w.teacher2.Profile.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"teacher": "teacher belongs to another institution"}),
		},
		{
			name: "Student profile is not a teacher", method: http.MethodPost, path: "/v1/courses", token: getToken(t, w.admin1),
			body:     newCourse("Geometry", w.class1ID, w.prog1ID, w.student1.Profile.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"teacher": "teacher not found"}),
		},
		{
			name: "Unknown teacher", method: http.MethodPost, path: "/v1/courses", token: getToken(t, w.admin1),
			body:     newCourse("Geometry", w.class1ID, w.prog1ID, "deadbeef"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"teacher": "teacher not found"}),
		},
		{
			name: "Update other institution refused", method: http.MethodPut, path: "/v1/courses/" + course2.ID, token: getToken(t, w.admin1),
			body: marchallObj(t, map[string]string{"name": "Hax"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Reassign to a foreign teacher refused", method: http.MethodPut, path: "/v1/courses/" + course1.ID, token: getToken(t, w.admin1),
			body:     marchallObj(t, map[string]string{"teacher": w.teacher2.Profile.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"teacher": "teacher belongs to another institution"}),
		},
		{
			name: "Delete other institution refused", method: http.MethodDelete, path: "/v1/courses?id=" + course2.ID, token: getToken(t, w.admin1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Create in scope", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, w.admin1), newCourse("Geometry", w.class1ID, w.prog1ID, w.teacher1.Profile.ID))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var crs school.Course
		if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if crs.Name != "Geometry" || crs.TeacherID != w.teacher1.Profile.ID {
			t.Errorf("failed! course = %+v", crs)
		}
	})

	t.Run("Reassign to a teacher of the same institution", func(t *testing.T) {
		teacher3 := testutil.CreateAccount(t, accountRepo, "teacher3", "teacher3@test.cd", testPassword, "263.943.950-92", account.RoleTeacher, "", w.inst1ID, true)

		body := marchallObj(t, map[string]string{"teacher": teacher3.Profile.ID})
		req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+course1.ID, getToken(t, w.admin1), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var crs school.Course
		if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if crs.TeacherID != teacher3.Profile.ID {
			t.Errorf("failed! teacher = %v", crs.TeacherID)
		}
	})

	t.Run("Delete in scope", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/courses?id="+course1.ID, getToken(t, w.admin1))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if _, err := schoolRepo.GetCourse(context.Background(), school.AllCourses(), course1.ID); err != school.ErrNotFound {
			t.Errorf("course still present; err %v", err)
		}
	})
}
