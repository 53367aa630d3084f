package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classpath/backend/core"
	"github.com/classpath/backend/core/account"
)

// ordering fields accepted on user listings
var userOrderingFields = map[string]bool{
	"registration_number": true,
	"email":               true,
	"created_at":          true,
	"modified_at":         true,
	"last_login":          true,
}

type accountApi struct {
	svc        *account.Service
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		svc:        deps.AccountSvc,
		conf:       deps.Conf,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	// un-authed endpoints
	g.POST("/login", api.login)
	g.POST("/my-account", api.signup)

	// authed endpoints
	ag := g.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/my-account", api.myAccount)
	ag.PUT("/my-account", api.updateMyAccount)
	ag.GET("/my-profile", api.myProfile)
	ag.PUT("/my-profile", api.updateMyProfile)

	ug := ag.Group("/users")
	ug.GET("", api.queryUsers, adminMiddleware())
	ug.DELETE("", api.destroyUsers, adminMiddleware())
	ug.GET("/:id", api.retrieveUser, adminMiddleware())
	ug.PUT("/:id", api.updateUser)

	sg := ag.Group("/students", adminMiddleware())
	sg.POST("", api.createStudent)
	sg.GET("", api.queryStudents)
	sg.DELETE("", api.destroyStudents)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent)

	tg := ag.Group("/teachers", adminMiddleware())
	tg.POST("", api.createTeacher)
	tg.GET("", api.queryTeachers)
	tg.DELETE("", api.destroyTeachers)
	tg.GET("/:id", api.retrieveTeacher)
	tg.PUT("/:id", api.updateTeacher)

	adg := ag.Group("/addresses")
	adg.POST("", api.createAddress)
	adg.GET("", api.queryAddresses)
	adg.DELETE("", api.destroyAddresses)
	adg.GET("/:id", api.retrieveAddress)
	adg.PUT("/:id", api.updateAddress)
}

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.RegistrationNumber, data.Password, api.svc, api.conf)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// signup registers a new account. The signed token is issued here and
// nowhere else; subsequent reads never return it.
func (api *accountApi) signup(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	created, err := api.svc.CreateAccount(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}

	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, created))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, CreatedAccountResponse{
		User:    created.User,
		Profile: created.Profile,
		Token:   token,
	})
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) myAccount(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	return ctx.JSON(http.StatusOK, MyAccountResponse{User: caller.User, Profile: caller.Profile})
}

func (api *accountApi) updateMyAccount(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data account.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(caller.User, api.validate); err != nil {
		return err
	}
	if data.IsActive != nil && !caller.IsAdmin() {
		return errHttpForbidden
	}

	usr, err := api.svc.UpdateUserAccount(ctx.Request().Context(), caller, caller.User.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating account")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *accountApi) myProfile(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if !caller.HasProfile() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, caller.Profile)
}

func (api *accountApi) updateMyProfile(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if !caller.HasProfile() {
		return errHttpNotFound
	}

	var data account.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(*caller.Profile, api.validate); err != nil {
		return err
	}

	prof, err := api.svc.UpdateOwnProfile(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *accountApi) queryUsers(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	filter := new(account.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []account.User{})
	}
	filter.Clean()

	ordering := new(Ordering)
	ordering.Bind(ctx)
	orderings := make([]core.DBOrdering, 0, len(ordering.Orderings))
	for _, ord := range ordering.Orderings {
		if userOrderingFields[ord.Field] {
			orderings = append(orderings, ord)
		}
	}

	users, err := api.svc.QueryUsers(ctx.Request().Context(), caller, filter, orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []account.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *accountApi) retrieveUser(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	usr, err := api.svc.GetUserScoped(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *accountApi) updateUser(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	rctx := ctx.Request().Context()
	usr, err := api.svc.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user")
	}

	var data account.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(usr, api.validate); err != nil {
		return err
	}

	usr, err = api.svc.UpdateUserAccount(rctx, caller, usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *accountApi) destroyUsers(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err = api.svc.DeleteUsers(ctx.Request().Context(), caller, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// student / teacher profile management (admin only, institution scoped)

func (api *accountApi) createProfile(ctx echo.Context, role account.Role) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data account.NewProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfile")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	var prof account.Profile
	rctx := ctx.Request().Context()
	switch role {
	case account.RoleStudent:
		prof, err = api.svc.CreateStudent(rctx, caller, data)
	default:
		prof, err = api.svc.CreateTeacher(rctx, caller, data)
	}
	if err != nil {
		return errors.Wrap(err, "creating profile")
	}
	return ctx.JSON(http.StatusCreated, prof)
}

func (api *accountApi) queryProfiles(ctx echo.Context, role account.Role) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	profiles, err := api.svc.QueryProfiles(ctx.Request().Context(), caller, role)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	if profiles == nil {
		profiles = []account.Profile{}
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *accountApi) retrieveProfile(ctx echo.Context, role account.Role) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	prof, err := api.svc.GetProfileScoped(ctx.Request().Context(), caller, role, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *accountApi) updateProfile(ctx echo.Context, role account.Role) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	rctx := ctx.Request().Context()
	prof, err := api.svc.GetProfileScoped(rctx, caller, role, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding profile")
	}

	var data account.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(prof, api.validate); err != nil {
		return err
	}

	prof, err = api.svc.UpdateProfileScoped(rctx, caller, role, prof.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *accountApi) destroyProfiles(ctx echo.Context, role account.Role) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err = api.svc.DeleteProfiles(ctx.Request().Context(), caller, role, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting profiles")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) createStudent(ctx echo.Context) error {
	return api.createProfile(ctx, account.RoleStudent)
}
func (api *accountApi) queryStudents(ctx echo.Context) error {
	return api.queryProfiles(ctx, account.RoleStudent)
}
func (api *accountApi) retrieveStudent(ctx echo.Context) error {
	return api.retrieveProfile(ctx, account.RoleStudent)
}
func (api *accountApi) updateStudent(ctx echo.Context) error {
	return api.updateProfile(ctx, account.RoleStudent)
}
func (api *accountApi) destroyStudents(ctx echo.Context) error {
	return api.destroyProfiles(ctx, account.RoleStudent)
}

func (api *accountApi) createTeacher(ctx echo.Context) error {
	return api.createProfile(ctx, account.RoleTeacher)
}
func (api *accountApi) queryTeachers(ctx echo.Context) error {
	return api.queryProfiles(ctx, account.RoleTeacher)
}
func (api *accountApi) retrieveTeacher(ctx echo.Context) error {
	return api.retrieveProfile(ctx, account.RoleTeacher)
}
func (api *accountApi) updateTeacher(ctx echo.Context) error {
	return api.updateProfile(ctx, account.RoleTeacher)
}
func (api *accountApi) destroyTeachers(ctx echo.Context) error {
	return api.destroyProfiles(ctx, account.RoleTeacher)
}

// addresses, always the caller's own

func (api *accountApi) createAddress(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data account.NewAddress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAddress")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	addr, err := api.svc.CreateMyAddress(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating address")
	}
	return ctx.JSON(http.StatusCreated, addr)
}

func (api *accountApi) queryAddresses(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	addrs, err := api.svc.QueryMyAddresses(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "querying addresses")
	}
	if addrs == nil {
		addrs = []account.Address{}
	}
	return ctx.JSON(http.StatusOK, addrs)
}

func (api *accountApi) retrieveAddress(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	addr, err := api.svc.GetMyAddress(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding address")
	}
	return ctx.JSON(http.StatusOK, addr)
}

func (api *accountApi) updateAddress(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data account.UpdateAddress
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAddress")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	addr, err := api.svc.UpdateMyAddress(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating address")
	}
	return ctx.JSON(http.StatusOK, addr)
}

func (api *accountApi) destroyAddresses(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	caller, err := getContextCaller(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err = api.svc.DeleteMyAddresses(ctx.Request().Context(), caller, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting addresses")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		RegistrationNumber string `json:"registration_number" validate:"required"`
		Password           string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	CreatedAccountResponse struct {
		User    account.User     `json:"user"`
		Profile *account.Profile `json:"profile,omitempty"`
		Token   string           `json:"token"`
	}

	MyAccountResponse struct {
		User    account.User     `json:"user"`
		Profile *account.Profile `json:"profile,omitempty"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.RegistrationNumber = core.CleanString(lr.RegistrationNumber, true /* lower */)
	return validate.Struct(lr)
}
