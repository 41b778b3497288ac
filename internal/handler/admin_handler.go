package handler

import (
	"net/http"
	"strconv"
	"time"

	"storerate-service/internal/middleware"
	"storerate-service/internal/model"
	"storerate-service/pkg/database"
	"storerate-service/pkg/logger"
	"storerate-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var userSortFields = map[string]string{
	"name":       "name",
	"email":      "email",
	"address":    "address",
	"role":       "role",
	"created_at": "created_at",
}

var adminStoreSortFields = map[string]string{
	"name":           "stores.name",
	"email":          "stores.email",
	"address":        "stores.address",
	"average_rating": "average_rating",
	"created_at":     "stores.created_at",
}

// Dashboard returns the admin dashboard totals.
func Dashboard(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AdminOperationCounter.WithLabelValues("dashboard").Inc()

	defer prometheus.TrackDBOperation("query")(time.Now())
	var totalUsers, totalStores, totalRatings int64
	db := database.GetDB()
	if err := db.Model(&model.User{}).Count(&totalUsers).Error; err != nil {
		log.Error("Failed to count users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load dashboard"})
	}
	if err := db.Model(&model.Store{}).Count(&totalStores).Error; err != nil {
		log.Error("Failed to count stores", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load dashboard"})
	}
	if err := db.Model(&model.Rating{}).Count(&totalRatings).Error; err != nil {
		log.Error("Failed to count ratings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load dashboard"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_users":   totalUsers,
		"total_stores":  totalStores,
		"total_ratings": totalRatings,
	})
}

// ListUsers lists users with free-text search, role filter and whitelisted
// sorting (admin only).
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AdminOperationCounter.WithLabelValues("list_users").Inc()

	field, ok := userSortFields[c.QueryParam("sortBy")]
	if !ok {
		field = "name"
	}
	order := sortOrder(c.QueryParam("sortOrder"))

	query := database.GetDB().Model(&model.User{})

	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ? OR address ILIKE ?", pattern, pattern, pattern)
	}
	if role := c.QueryParam("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	if err := query.Order(field + " " + order).Find(&users).Error; err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve users"})
	}

	log.Info("Users listed", zap.Int("count", len(users)))
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// ListStoresAdmin lists stores with aggregates and the linked owner's name
// (admin only).
func ListStoresAdmin(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AdminOperationCounter.WithLabelValues("list_stores").Inc()

	field, ok := adminStoreSortFields[c.QueryParam("sortBy")]
	if !ok {
		field = "stores.name"
	}
	order := sortOrder(c.QueryParam("sortOrder"))

	query := database.GetDB().Model(&model.Store{}).
		Select(storeAggregateSelect + ", users.name AS owner_name").
		Joins("LEFT JOIN ratings ON ratings.store_id = stores.id").
		Joins("LEFT JOIN users ON users.id = stores.owner_id").
		Group("stores.id, users.name")

	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("stores.name ILIKE ? OR stores.email ILIKE ? OR stores.address ILIKE ?",
			pattern, pattern, pattern)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var stores []model.StoreWithRating
	if err := query.Order(field + " " + order).Scan(&stores).Error; err != nil {
		log.Error("Failed to list stores", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve stores"})
	}

	log.Info("Admin stores listed", zap.Int("count", len(stores)))
	return c.JSON(http.StatusOK, echo.Map{"stores": stores})
}

// CreateUser creates a user with an explicit role (admin only). Same field
// rules as registration; no token is issued.
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AdminOperationCounter.WithLabelValues("create_user").Inc()

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Address  string `json:"address"`
		Role     string `json:"role"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Role == "" {
		req.Role = model.RoleUser
	}

	if err := validateUserFields(req.Name, req.Email, req.Password, req.Address, req.Role); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var count int64
	database.GetDB().Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("User already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "user with this email already exists"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	user := model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
		Address:  req.Address,
		Role:     req.Role,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	log.Info("User created by admin",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("role", user.Role))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully",
		"user":    user,
	})
}

// GetUser returns a user's details (admin only). For store owners the
// response also carries the average rating of their store, resolved as the
// first store linked to them.
func GetUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AdminOperationCounter.WithLabelValues("get_user").Inc()
	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, id); result.Error != nil {
		log.Warn("User not found", zap.String("user_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if user.Role == model.RoleStoreOwner {
		var owned struct {
			AverageRating float64
		}
		result := database.GetDB().Model(&model.Store{}).
			Select("COALESCE(AVG(ratings.rating), 0) AS average_rating").
			Joins("LEFT JOIN ratings ON ratings.store_id = stores.id").
			Where("stores.owner_id = ?", user.ID).
			Group("stores.id").
			Order("stores.id").
			Limit(1).
			Scan(&owned)
		if result.Error != nil {
			log.Error("Failed to resolve owned store rating", zap.String("user_id", id), zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve user"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"user":         user,
			"store_rating": owned.AverageRating,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// UpdateUser updates a user's name, email, address and role (admin only).
// Passwords are not touched here; users change their own.
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AdminOperationCounter.WithLabelValues("update_user").Inc()
	id := c.Param("id")

	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Address string `json:"address"`
		Role    string `json:"role"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user request", zap.String("user_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errInvalidRole.Error()})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, id); result.Error != nil {
		log.Warn("User not found for update", zap.String("user_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	var count int64
	database.GetDB().Model(&model.User{}).Where("email = ? AND id != ?", req.Email, user.ID).Count(&count)
	if count > 0 {
		log.Warn("User email already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "user with this email already exists"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	updates := map[string]interface{}{
		"name":    req.Name,
		"email":   req.Email,
		"address": req.Address,
		"role":    req.Role,
	}
	if err := database.GetDB().Model(&user).Updates(updates).Error; err != nil {
		log.Error("Failed to update user", zap.String("user_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}

	log.Info("User updated", zap.Uint("user_id", user.ID), zap.String("role", req.Role))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User updated successfully",
		"user":    user,
	})
}

// DeleteUser removes a user (admin only). Admins cannot delete the account
// they are authenticated as.
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AdminOperationCounter.WithLabelValues("delete_user").Inc()
	id := c.Param("id")

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	if targetID, err := strconv.ParseUint(id, 10, 32); err == nil && uint(targetID) == caller.ID {
		log.Warn("Admin attempted to delete own account", zap.Uint("user_id", caller.ID))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete your own account"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().Delete(&model.User{}, id)
	if result.Error != nil {
		log.Error("Failed to delete user", zap.String("user_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete user"})
	}
	if result.RowsAffected == 0 {
		log.Warn("User not found for delete", zap.String("user_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	log.Info("User deleted", zap.String("user_id", id), zap.Uint("deleted_by", caller.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}
