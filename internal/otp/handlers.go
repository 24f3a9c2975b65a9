package otp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// RegisterRoutes mounts the relay endpoints consumed by the signup page.
func RegisterRoutes(r gin.IRouter, svc *Service) {
	r.POST("/send-otp", func(c *gin.Context) {
		var req sendOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
			return
		}

		if err := svc.Issue(c.Request.Context(), req.Email); err != nil {
			if errors.Is(err, ErrInvalidEmail) {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Please enter a valid email."})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "OTP sent"})
	})

	r.POST("/verify-otp", func(c *gin.Context) {
		var req verifyOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.OTP == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email and OTP are required"})
			return
		}

		if svc.Verify(req.Email, req.OTP) {
			c.JSON(http.StatusOK, gin.H{"verified": true})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"verified": false})
	})
}
