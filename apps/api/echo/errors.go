package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/mwalimu/kazi/core"
	"github.com/mwalimu/kazi/core/dayclose"
	"github.com/mwalimu/kazi/core/escalation"
	"github.com/mwalimu/kazi/core/task"
	"github.com/mwalimu/kazi/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how
// to handle our errors. Domain conflicts (duplicate or already-closed
// submissions, stale task updates) map to 409; rule violations that the client
// can retry later or with different input (locked rows, closed windows,
// illegal status moves, ineligible submissions) map to 422.
// signalShutdown is called in order to gracefully shutdown the Server whenever
// a core shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *task.ForbiddenError:
			code = http.StatusForbidden
			message = origErr.Error()
		case *task.IllegalTransitionError:
			code = http.StatusUnprocessableEntity
			message = origErr.Error()
		case *dayclose.InvalidStateError:
			code = http.StatusUnprocessableEntity
			message = origErr.Error()
		case *dayclose.NotEligibleError:
			code = http.StatusUnprocessableEntity
			message = echo.Map{"error": origErr.Error(), "reasons": origErr.Reasons}
		default:
			code, message = mapSentinelError(origErr)
			if code != http.StatusInternalServerError {
				break
			}

			// any other error is a server error
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func mapSentinelError(err error) (int, interface{}) {
	switch err {
	case user.ErrNotFound, task.ErrNotFound, dayclose.ErrNotFound,
		escalation.ErrMatterNotFound, escalation.ErrOverrideNotFound:
		return http.StatusNotFound, err.Error()
	case dayclose.ErrForbidden, escalation.ErrForbidden:
		return http.StatusForbidden, err.Error()
	case task.ErrConflict, dayclose.ErrConflict, dayclose.ErrAlreadyClosed, dayclose.ErrAlreadySubmitted:
		return http.StatusConflict, err.Error()
	case task.ErrLocked, dayclose.ErrWindowClosed, dayclose.ErrDateMismatch, dayclose.ErrMRIPending:
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, nil
}
