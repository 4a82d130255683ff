package handlers

import "github.com/gin-gonic/gin"

// respondOK writes the success envelope with an optional data payload.
func respondOK(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// respondError writes the failure envelope and aborts the handler chain.
func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
