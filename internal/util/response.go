package util

import "github.com/gin-gonic/gin"

// Message writes the {message, statusCode} envelope the API has always
// used for errors and acknowledgements.
func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"message":    msg,
		"statusCode": status,
	})
}

// Abort writes the envelope and stops the handler chain (for middleware).
func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"message":    msg,
		"statusCode": status,
	})
}
