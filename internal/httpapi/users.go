package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

var errWeakRegistration = errors.New("registration payload incomplete or password too short")

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		writeError(c, http.StatusBadRequest, "username, email, and a password of at least 8 characters are required", errWeakRegistration)
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "failed to register user")
		return
	}

	token, expiresAt, err := h.auth.Issue(user.ID, user.Role)
	if err != nil {
		h.respondError(c, err, "failed to issue token")
		return
	}

	writeData(c, http.StatusCreated, authResponse(user, token, expiresAt))
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(c, http.StatusBadRequest, "username and password are required", postgres.ErrInvalidCredentials)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err, "failed to login")
		return
	}

	token, expiresAt, err := h.auth.Issue(user.ID, user.Role)
	if err != nil {
		h.respondError(c, err, "failed to issue token")
		return
	}

	writeData(c, http.StatusOK, authResponse(user, token, expiresAt))
}

func (h *Handler) handleMe(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), callerID(c))
	if err != nil {
		h.respondError(c, err, "failed to load user")
		return
	}
	writeData(c, http.StatusOK, user)
}

func authResponse(user postgres.User, token string, expiresAt time.Time) gin.H {
	return gin.H{
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
		"user":      user,
	}
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func (h *Handler) handleListUsers(c *gin.Context) {
	p := listParams(c)
	users, total, err := h.users.List(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err, "failed to list users")
		return
	}
	writeList(c, p, total, users)
}

func (h *Handler) handleGetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load user")
		return
	}
	writeData(c, http.StatusOK, user)
}

func (h *Handler) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		writeError(c, http.StatusBadRequest, "username, email, and a password of at least 8 characters are required", errWeakRegistration)
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "failed to create user")
		return
	}
	writeData(c, http.StatusCreated, user)
}

func (h *Handler) handleUpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if !postgres.ValidRole(req.Role) {
		writeError(c, http.StatusBadRequest, "invalid role", postgres.ErrInvalidRole)
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, req.Email, req.Role, req.Active)
	if err != nil {
		h.respondError(c, err, "failed to update user")
		return
	}
	writeData(c, http.StatusOK, user)
}

func (h *Handler) handleDeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to delete user")
		return
	}
	c.Status(http.StatusNoContent)
}
