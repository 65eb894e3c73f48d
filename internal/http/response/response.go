package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/superconnector-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError picks the status from the errs taxonomy. Internal
// failures keep their message out of the body.
func RespondDomainError(c *gin.Context, err error) {
	ae := apierr.FromDomain(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	if ae.Status >= http.StatusInternalServerError && ae.Code == "internal" {
		RespondError(c, ae.Status, ae.Code, errInternal)
		return
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

type internalError struct{}

func (internalError) Error() string { return "internal error" }

var errInternal error = internalError{}
