package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nodehub-cloud/orchestrator/internal/utils"
)

// CORS sets the headers the dashboard origin requires and short-circuits
// preflight requests.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Allow-Methods", "OPTIONS,POST,GET,PUT,DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// OwnerAddressValidator rejects requests whose ownerId path parameter is
// not a well-formed wallet address.
func OwnerAddressValidator() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.Param("ownerId")
		if !utils.IsOwnerAddress(ownerID) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid wallet address format",
			})
			return
		}
		c.Next()
	}
}
