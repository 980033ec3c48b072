package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/pongarena/server/errcode"
)

// fail renders any service error as the coded envelope. Unrecognized
// errors become the generic internal code without leaking detail.
func fail(c *gin.Context, err error) {
	e := errcode.From(err)
	c.JSON(e.HTTPStatus(), gin.H{"code": e.Code, "error": e.Message})
}

// ok renders a success envelope. Extra fields ride alongside the code.
func ok(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"code": errcode.CodeOK}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context) {
	fail(c, errcode.ErrBadRequest)
}
