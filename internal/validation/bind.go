package validation

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BindJSON decodes the request body into out. On a malformed body it writes a 400 response and
// returns the decode error so the handler can short-circuit.
func BindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid_request_body",
			"msg":   err.Error(),
		})
		return err
	}
	return nil
}

// ResponseBody renders a validation failure the way the API reports it.
func ResponseBody(verr *Error) gin.H {
	code := "validation_failed"
	if verr.IsConflict() {
		code = "conflict"
	}
	return gin.H{
		"error":  code,
		"msg":    verr.Messages(),
		"fields": verr.Failures,
	}
}
