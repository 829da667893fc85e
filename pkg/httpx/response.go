package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WriteObject 统一JSON响应
func WriteObject(c *gin.Context, obj interface{}, err error) {
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadRequest
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(status, obj)
}
