package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"storerate-service/internal/model"
	"storerate-service/internal/validation"
	"storerate-service/pkg/database"
	"storerate-service/pkg/logger"
	"storerate-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errStoreNameRequired = errors.New("store name is required")

// StoreRequest defines the structure for store creation/update requests
type StoreRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	OwnerID *uint  `json:"owner_id"`
}

// Sort fields accepted by the public store listing. Unknown values fall back
// to name. Aggregate aliases must stay unqualified.
var storeSortFields = map[string]string{
	"name":           "stores.name",
	"address":        "stores.address",
	"average_rating": "average_rating",
	"created_at":     "stores.created_at",
}

const storeAggregateSelect = "stores.id, stores.name, stores.email, stores.address, stores.owner_id, " +
	"stores.created_at, stores.updated_at, " +
	"COALESCE(AVG(ratings.rating), 0) AS average_rating, COUNT(ratings.id) AS total_ratings"

// storeAggregateQuery builds the base listing query with read-time rating
// aggregates.
func storeAggregateQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&model.Store{}).
		Select(storeAggregateSelect).
		Joins("LEFT JOIN ratings ON ratings.store_id = stores.id").
		Group("stores.id")
}

// sortOrder normalizes the sortOrder query parameter to ASC/DESC.
func sortOrder(param string) string {
	if strings.EqualFold(param, "desc") {
		return "DESC"
	}
	return "ASC"
}

// ListStores handles the public store listing with optional free-text search
// over name and address plus whitelisted sorting.
func ListStores(c echo.Context) error {
	log := logger.FromContext(c)

	field, ok := storeSortFields[c.QueryParam("sortBy")]
	if !ok {
		field = "stores.name"
	}
	order := sortOrder(c.QueryParam("sortOrder"))

	query := storeAggregateQuery(database.GetDB())

	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("stores.name ILIKE ? OR stores.address ILIKE ?", pattern, pattern)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var stores []model.StoreWithRating
	if err := query.Order(field + " " + order).Scan(&stores).Error; err != nil {
		log.Error("Failed to list stores", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve stores"})
	}

	log.Info("Stores listed", zap.Int("count", len(stores)))
	return c.JSON(http.StatusOK, echo.Map{"stores": stores})
}

// GetStore handles retrieving a single store by ID with its aggregates.
func GetStore(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var store model.StoreWithRating
	result := storeAggregateQuery(database.GetDB()).Where("stores.id = ?", id).Scan(&store)
	if result.Error != nil {
		log.Error("Failed to get store", zap.String("store_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve store"})
	}
	if result.RowsAffected == 0 {
		log.Warn("Store not found", zap.String("store_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"store": store})
}

// CreateStore handles creating a new store (admin only).
func CreateStore(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.StoreOperationCounter.WithLabelValues("create").Inc()

	var req StoreRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid store request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := validateStoreFields(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var count int64
	database.GetDB().Model(&model.Store{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("Store email already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "store with this email already exists"})
	}

	if ok, err := checkStoreOwner(c, req.OwnerID); !ok {
		return err
	}

	store := model.Store{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		OwnerID: req.OwnerID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&store); result.Error != nil {
		log.Error("Failed to create store", zap.String("name", req.Name), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create store"})
	}

	log.Info("Store created", zap.Uint("store_id", store.ID), zap.String("name", store.Name))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Store created successfully",
		"store":   store,
	})
}

// UpdateStore handles updating an existing store (admin only).
func UpdateStore(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.StoreOperationCounter.WithLabelValues("update").Inc()
	id := c.Param("id")

	var req StoreRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid store request", zap.String("store_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := validateStoreFields(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var store model.Store
	if result := database.GetDB().First(&store, id); result.Error != nil {
		log.Warn("Store not found for update", zap.String("store_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
	}

	// Uniqueness check excluding the store's own row.
	var count int64
	database.GetDB().Model(&model.Store{}).Where("email = ? AND id != ?", req.Email, store.ID).Count(&count)
	if count > 0 {
		log.Warn("Store email already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "store with this email already exists"})
	}

	if ok, err := checkStoreOwner(c, req.OwnerID); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	updates := map[string]interface{}{
		"name":     req.Name,
		"email":    req.Email,
		"address":  req.Address,
		"owner_id": req.OwnerID,
	}
	if err := database.GetDB().Model(&store).Updates(updates).Error; err != nil {
		log.Error("Failed to update store", zap.String("store_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update store"})
	}

	log.Info("Store updated", zap.Uint("store_id", store.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Store updated successfully",
		"store":   store,
	})
}

// DeleteStore handles deleting a store (admin only).
func DeleteStore(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.StoreOperationCounter.WithLabelValues("delete").Inc()
	id := c.Param("id")

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().Delete(&model.Store{}, id)
	if result.Error != nil {
		log.Error("Failed to delete store", zap.String("store_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete store"})
	}
	if result.RowsAffected == 0 {
		log.Warn("Store not found for delete", zap.String("store_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
	}

	log.Info("Store deleted", zap.String("store_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Store deleted successfully"})
}

// validateStoreFields applies the store field rules.
func validateStoreFields(req *StoreRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return errStoreNameRequired
	}
	if err := validation.Email(req.Email); err != nil {
		return err
	}
	return validation.Address(req.Address)
}

// checkStoreOwner verifies that an owner linkage, when given, references an
// existing user whose role is store_owner at this moment. When the check
// fails it writes the response itself and returns ok=false.
func checkStoreOwner(c echo.Context, ownerID *uint) (bool, error) {
	if ownerID == nil {
		return true, nil
	}
	log := logger.FromContext(c)

	var owner model.User
	if result := database.GetDB().First(&owner, *ownerID); result.Error != nil {
		log.Warn("Store owner not found", zap.Uint("owner_id", *ownerID))
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "owner not found"})
	}
	if owner.Role != model.RoleStoreOwner {
		log.Warn("Linked user is not a store owner",
			zap.Uint("owner_id", *ownerID),
			zap.String("role", owner.Role))
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "owner must be a store owner"})
	}
	return true, nil
}
