package mygin

import (
	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

type ErrInfo struct {
	Code int
	Msg  string
}

func ShowError(c *gin.Context, i ErrInfo) {
	c.AbortWithStatusJSON(i.Code, Response{
		Code:    i.Code,
		Message: i.Msg,
	})
}
