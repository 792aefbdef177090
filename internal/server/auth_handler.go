package server

import (
	"net/http"

	"github.com/at-ishikawa/wandrr/internal/user"
	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Message     string    `json:"message"`
	Token       string    `json:"token"`
	User        user.User `json:"user"`
	IsLocalMode bool      `json:"isLocalMode"`
}

type signupResponse struct {
	Message    string `json:"message"`
	UserID     string `json:"userId"`
	Optimistic bool   `json:"optimistic,omitempty"`
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Email and password are required.")
		return
	}

	result, err := h.resolver.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "Internal Server Error. Please try again later.")
		return
	}
	message := "Login successful."
	if result.IsLocalMode {
		message = "Login successful. Running in local mode."
	}
	c.JSON(http.StatusOK, loginResponse{
		Message:     message,
		Token:       result.Token,
		User:        result.User,
		IsLocalMode: result.IsLocalMode,
	})
}

func (h *Handler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Email and password are required.")
		return
	}

	result, err := h.resolver.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	message := "User registered successfully."
	if result.Optimistic {
		message = "Account created successfully. You can now log in."
	}
	c.JSON(http.StatusCreated, signupResponse{
		Message:    message,
		UserID:     result.UserID,
		Optimistic: result.Optimistic,
	})
}
