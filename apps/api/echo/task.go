package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/task"
	"github.com/mwalimu/kazi/core/user"
)

type taskApi struct {
	svc      *task.Service
	userSvc  *user.Service
	validate *validator.Validate
}

func registerTaskAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *task.Service,
	userSvc *user.Service,
	validate *validator.Validate,
) {
	api := taskApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	tg := g.Group("/tasks", jwt)
	tg.GET("/assignments", api.queryAssignments)
	tg.PUT("/assignments/:id/status", api.moveAssignment)
	tg.GET("/routines", api.queryRoutines)
	tg.PUT("/routines/:id/status", api.moveRoutine)
}

type statusChangeRequest struct {
	Status  task.Status `json:"status" validate:"required"`
	Date    string      `json:"date"`
	Comment string      `json:"comment"`
}

func (r statusChangeRequest) date() (time.Time, error) {
	if r.Date == "" {
		return core.DateOf(time.Now().UTC()), nil
	}
	date, err := time.ParseInLocation(dateLayout, r.Date, time.UTC)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "invalid date, expected YYYY-MM-DD"})
	}
	return date, nil
}

// Handlers

func (api *taskApi) queryAssignments(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	assignments, err := api.svc.MemberAssignments(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *taskApi) queryRoutines(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	date, err := dateParam(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	items, err := api.svc.RoutineDay(ctx.Request().Context(), usr.ID, date)
	if err != nil {
		return errors.Wrap(err, "querying routine day")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *taskApi) moveAssignment(ctx echo.Context) error {
	var data statusChangeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to statusChangeRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	assignment, err := api.svc.MoveAssignment(ctx.Request().Context(), usr, ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, assignment)
}

func (api *taskApi) moveRoutine(ctx echo.Context) error {
	var data statusChangeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to statusChangeRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	date, err := data.date()
	if err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	status, err := api.svc.MoveRoutine(ctx.Request().Context(), usr, ctx.Param("id"), date, data.Status, data.Comment)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, status)
}
