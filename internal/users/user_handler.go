package users

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/roles"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/security"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

type UsersHandler struct {
	Repository UserRepository
}

func NewHandler(r UserRepository) *UsersHandler {
	return &UsersHandler{
		Repository: r,
	}
}

func (h *UsersHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/users/:id", security.Authorize("operator"), h.GetUser)
	router.GET("/users", security.Authorize("supervisor"), h.GetUserList)
}

func (h *UsersHandler) GetUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID", "details": err.Error()})
		return
	}

	if !h.isAllowed(c, userID, roles.Supervisor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden", "details": "You are not allowed to access this resource"})
		return
	}

	user, err := h.Repository.GetUser(c.Request.Context(), userID)
	if custom_error.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unable to find user", "details": err.Error(), "code": "USER_NOT_FOUND"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) GetUserList(c *gin.Context) {
	users, err := h.Repository.GetUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get users", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, users)
}

// isAllowed lets users read themselves and minRole read anyone.
func (h *UsersHandler) isAllowed(c *gin.Context, userID int, minRole roles.Role) bool {
	currentID, err := security.CurrentUserID(c)
	if err != nil {
		return false
	}
	if currentID == userID {
		return true
	}
	return security.CurrentRole(c).HasPermission(minRole)
}
