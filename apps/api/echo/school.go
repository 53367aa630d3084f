package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/classpath/backend/core/account"
	"github.com/classpath/backend/core/school"
)

type schoolApi struct {
	svc        *school.Service
	accountSvc *account.Service
	validate   *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{
		svc:        deps.SchoolSvc,
		accountSvc: deps.AccountSvc,
		validate:   deps.Validate,
	}

	ag := g.Group("", jwt)

	// "my" views, any role, scoped to the caller
	ag.GET("/my-institution", api.myInstitution)
	ag.GET("/my-class", api.myClass)
	ag.GET("/my-classes", api.queryClasses)
	ag.GET("/my-courses", api.queryCourses)
	ag.GET("/my-programs", api.queryPrograms)

	ig := ag.Group("/institutions")
	ig.POST("", api.createInstitution, adminMiddleware())
	ig.GET("", api.queryInstitutions, adminMiddleware())
	ig.DELETE("", api.destroyInstitutions, adminMiddleware())
	ig.GET("/:id", api.retrieveInstitution, adminMiddleware())
	ig.PUT("/:id", api.updateInstitution, adminMiddleware())

	pg := ag.Group("/programs")
	pg.POST("", api.createProgram, adminMiddleware())
	pg.GET("", api.queryPrograms)
	pg.DELETE("", api.destroyPrograms, adminMiddleware())
	pg.GET("/:id", api.retrieveProgram)
	pg.PUT("/:id", api.updateProgram, adminMiddleware())

	cg := ag.Group("/classes")
	cg.POST("", api.createClass, adminMiddleware())
	cg.GET("", api.queryClasses)
	cg.DELETE("", api.destroyClasses, adminMiddleware())
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass, adminMiddleware())

	crg := ag.Group("/courses")
	crg.POST("", api.createCourse, adminMiddleware())
	crg.GET("", api.queryCourses)
	crg.DELETE("", api.destroyCourses, adminMiddleware())
	crg.GET("/:id", api.retrieveCourse)
	crg.PUT("/:id", api.updateCourse, adminMiddleware())
}

// Handlers

func (api *schoolApi) createInstitution(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data school.NewInstitution
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstitution")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	inst, err := api.svc.CreateInstitution(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating institution")
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *schoolApi) queryInstitutions(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	insts, err := api.svc.QueryInstitutions(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "querying institutions")
	}
	if insts == nil {
		insts = []school.Institution{}
	}
	return ctx.JSON(http.StatusOK, insts)
}

func (api *schoolApi) retrieveInstitution(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	inst, err := api.svc.GetInstitution(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding institution")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *schoolApi) myInstitution(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	inst, err := api.svc.MyInstitution(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "finding institution")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *schoolApi) updateInstitution(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data school.UpdateInstitution
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInstitution")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	inst, err := api.svc.UpdateInstitution(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating institution")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *schoolApi) destroyInstitutions(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err = api.svc.DeleteInstitutions(ctx.Request().Context(), caller, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting institutions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) createProgram(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data school.NewProgram
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgram")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	prog, err := api.svc.CreateProgram(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *schoolApi) queryPrograms(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	progs, err := api.svc.QueryPrograms(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	if progs == nil {
		progs = []school.Program{}
	}
	return ctx.JSON(http.StatusOK, progs)
}

func (api *schoolApi) retrieveProgram(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	prog, err := api.svc.GetProgram(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *schoolApi) updateProgram(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data school.UpdateEntity
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntity")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	prog, err := api.svc.UpdateProgram(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *schoolApi) destroyPrograms(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err = api.svc.DeletePrograms(ctx.Request().Context(), caller, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting programs")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) createClass(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data school.NewClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	classes, err := api.svc.QueryClasses(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	cls, err := api.svc.GetClass(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) myClass(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	cls, err := api.svc.MyClass(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "finding class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) updateClass(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data school.UpdateEntity
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntity")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.UpdateClass(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) destroyClasses(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err = api.svc.DeleteClasses(ctx.Request().Context(), caller, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting classes")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) createCourse(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data school.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.CreateCourse(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *schoolApi) queryCourses(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	courses, err := api.svc.QueryCourses(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []school.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *schoolApi) retrieveCourse(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	crs, err := api.svc.GetCourse(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *schoolApi) updateCourse(ctx echo.Context) error {
	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}

	var data school.UpdateEntity
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEntity")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.UpdateCourse(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *schoolApi) destroyCourses(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	caller, err := getContextCaller(ctx, api.accountSvc)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err = api.svc.DeleteCourses(ctx.Request().Context(), caller, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return ctx.NoContent(http.StatusNoContent)
}
