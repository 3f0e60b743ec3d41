package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/user"
)

type dayCloseApi struct {
	svc           *dayclose.Service
	escalationSvc *escalation.Service
	userSvc       *user.Service
	validate      *validator.Validate
}

func registerDayCloseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := dayCloseApi{
		svc:           deps.DayCloseSvc,
		escalationSvc: deps.EscalationSvc,
		userSvc:       deps.UserSvc,
		validate:      deps.Validate,
	}

	g.POST("/day/open", api.openDay, jwt)

	dcg := g.Group("/dayclose", jwt)
	dcg.GET("/prepare", api.prepare)
	dcg.GET("/eligibility", api.eligibility)
	dcg.POST("/submit", api.submit)
	dcg.GET("/status", api.status)
	dcg.GET("/history", api.history)

	// approval perms (admin or the member's supervisor) are enforced by the
	// service, not a blanket admin gate
	rg := dcg.Group("/requests/:id")
	rg.POST("/approve", api.approve)
	rg.POST("/reject", api.reject)
	rg.POST("/reopen", api.reopen)

	ag := g.Group("/admin", jwt, adminMiddleware())
	ag.POST("/bypass", api.setBypass)
	ag.POST("/escalation-override", api.setEscalationOverride)
	ag.PUT("/windows", api.setTimeWindow)
}

type (
	submitRequest struct {
		Date string `json:"date"`
		dayclose.SubmitInput
	}

	rejectRequest struct {
		Note string `json:"note"`
	}

	bypassRequest struct {
		Enabled bool `json:"enabled"`
	}

	overrideRequest struct {
		UserID string `json:"user_id" validate:"required"`
		Active bool   `json:"active"`
	}
)

func parseBodyDate(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return core.DateOf(fallback), nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "invalid date, expected YYYY-MM-DD"})
	}
	return date, nil
}

// Handlers

func (api *dayCloseApi) openDay(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.OpenDay(ctx.Request().Context(), usr, api.svc.Now()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *dayCloseApi) prepare(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	date, err := dateParam(ctx, api.svc.Now())
	if err != nil {
		return err
	}

	prep, err := api.svc.Prepare(ctx.Request().Context(), usr.ID, date)
	if err != nil {
		return errors.Wrap(err, "preparing day close")
	}
	return ctx.JSON(http.StatusOK, prep)
}

func (api *dayCloseApi) eligibility(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	date, err := dateParam(ctx, api.svc.Now())
	if err != nil {
		return err
	}

	elig, err := api.svc.CheckEligible(ctx.Request().Context(), usr, date)
	if err != nil {
		return errors.Wrap(err, "checking eligibility")
	}
	return ctx.JSON(http.StatusOK, elig)
}

func (api *dayCloseApi) submit(ctx echo.Context) error {
	var data submitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to submitRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	date, err := parseBodyDate(data.Date, api.svc.Now())
	if err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Submit(ctx.Request().Context(), usr, date, data.SubmitInput)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *dayCloseApi) status(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	date, err := dateParam(ctx, api.svc.Now())
	if err != nil {
		return err
	}

	info, err := api.svc.Status(ctx.Request().Context(), usr.ID, date)
	if err != nil {
		return errors.Wrap(err, "getting day-close status")
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *dayCloseApi) history(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reqs, err := api.svc.History(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying day-close history")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *dayCloseApi) approve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Approve(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *dayCloseApi) reject(ctx echo.Context) error {
	var data rejectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to rejectRequest")
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Reject(ctx.Request().Context(), usr, ctx.Param("id"), data.Note)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *dayCloseApi) reopen(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Reopen(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *dayCloseApi) setBypass(ctx echo.Context) error {
	var data bypassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to bypassRequest")
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.SetBypass(ctx.Request().Context(), usr, data.Enabled); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"enabled": data.Enabled})
}

func (api *dayCloseApi) setTimeWindow(ctx echo.Context) error {
	var data dayclose.TimeWindow
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TimeWindow")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	win, err := api.svc.SetTimeWindow(ctx.Request().Context(), usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, win)
}

func (api *dayCloseApi) setEscalationOverride(ctx echo.Context) error {
	var data overrideRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to overrideRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	state, err := api.escalationSvc.SetOverride(ctx.Request().Context(), usr, data.UserID, data.Active)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, state)
}
