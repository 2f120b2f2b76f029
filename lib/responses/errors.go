package responses

import (
	"errors"
	"net/http"

	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error          bool   `json:"error"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	HttpStatusCode int    `json:"-"`
}

var GeneralServerError = ErrorResponse{
	Error:          true,
	Code:           6,
	Message:        "Something went wrong. Please try again later",
	HttpStatusCode: 500,
}

var BadArgumentsError = ErrorResponse{
	Error:          true,
	Code:           8,
	Message:        "Bad arguments",
	HttpStatusCode: 400,
}

var BadAuthError = ErrorResponse{
	Error:          true,
	Code:           1,
	Message:        "bad auth",
	HttpStatusCode: 401,
}

var NotFoundError = ErrorResponse{
	Error:          true,
	Code:           3,
	Message:        "not found",
	HttpStatusCode: 404,
}

var ConflictError = ErrorResponse{
	Error:          true,
	Code:           4,
	Message:        "the record was modified by a concurrent request. fetch the latest version and retry",
	HttpStatusCode: 409,
}

var AmountMismatchError = ErrorResponse{
	Error:          true,
	Code:           5,
	Message:        "payment amount does not match any open intent. the event was recorded for manual review",
	HttpStatusCode: 422,
}

var ProviderUnavailableError = ErrorResponse{
	Error:          true,
	Code:           7,
	Message:        "upstream provider unavailable. please try again later",
	HttpStatusCode: 502,
}

var LoginTakenError = ErrorResponse{
	Error:          true,
	Code:           2,
	Message:        "login already exists",
	HttpStatusCode: 400,
}

// FromServiceError maps a service-layer error onto the response to send.
// Validation failures carry their reason through; everything else gets a
// canned message so provider error bodies never leak to API consumers.
func FromServiceError(err error) ErrorResponse {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		resp := BadArgumentsError
		resp.Message = validationErr.Reason
		return resp
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		return ConflictError
	}
	var mismatchErr *service.AmountMismatchError
	if errors.As(err, &mismatchErr) {
		return AmountMismatchError
	}
	var providerErr *service.ProviderError
	if errors.As(err, &providerErr) {
		return ProviderUnavailableError
	}
	return GeneralServerError
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("UserID", c.Get("UserID"))
			hub.CaptureException(err)
		})
	}
	code := http.StatusInternalServerError
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		c.JSON(code, he.Message)
	} else {
		c.JSON(http.StatusInternalServerError, GeneralServerError)
	}
}
