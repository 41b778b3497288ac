package handler

import (
	"net/http"
	"time"

	"storerate-service/internal/middleware"
	"storerate-service/internal/model"
	"storerate-service/internal/validation"
	"storerate-service/pkg/database"
	"storerate-service/pkg/logger"
	"storerate-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// SubmitRating upserts the caller's rating for a store. The write is a single
// INSERT ... ON CONFLICT keyed on (user_id, store_id), so concurrent
// duplicate submissions collapse onto one row; the preceding read only picks
// the response message.
func SubmitRating(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		StoreID uint `json:"store_id"`
		Rating  int  `json:"rating"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse rating request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := validation.RatingValue(req.Rating); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var storeCount int64
	database.GetDB().Model(&model.Store{}).Where("id = ?", req.StoreID).Count(&storeCount)
	if storeCount == 0 {
		log.Warn("Rating for unknown store", zap.Uint("store_id", req.StoreID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
	}

	var existing model.Rating
	updated := database.GetDB().
		Where("user_id = ? AND store_id = ?", user.ID, req.StoreID).
		First(&existing).Error == nil

	rating := model.Rating{
		UserID:  user.ID,
		StoreID: req.StoreID,
		Rating:  req.Rating,
	}

	defer prometheus.TrackDBOperation("upsert")(time.Now())
	err := database.GetDB().Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "store_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"rating":     req.Rating,
			"updated_at": time.Now(),
		}),
	}).Create(&rating).Error
	if err != nil {
		log.Error("Failed to upsert rating",
			zap.Uint("user_id", user.ID),
			zap.Uint("store_id", req.StoreID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to submit rating"})
	}

	// Re-read the canonical row; on the update path the insert candidate's id
	// and created_at do not reflect what is stored.
	if err := database.GetDB().
		Where("user_id = ? AND store_id = ?", user.ID, req.StoreID).
		First(&rating).Error; err != nil {
		log.Error("Failed to reload rating", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to submit rating"})
	}

	if updated {
		prometheus.RecordRatingSubmission("updated")
		log.Info("Rating updated",
			zap.Uint("user_id", user.ID),
			zap.Uint("store_id", req.StoreID),
			zap.Int("rating", req.Rating))
		return c.JSON(http.StatusOK, echo.Map{
			"message": "Rating updated successfully",
			"rating":  rating,
		})
	}

	prometheus.RecordRatingSubmission("submitted")
	log.Info("Rating submitted",
		zap.Uint("user_id", user.ID),
		zap.Uint("store_id", req.StoreID),
		zap.Int("rating", req.Rating))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Rating submitted successfully",
		"rating":  rating,
	})
}

// GetUserRating returns the caller's own rating for a store, or null when the
// caller has not rated it.
func GetUserRating(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	storeID := c.Param("storeId")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var rating model.Rating
	if err := database.GetDB().
		Where("user_id = ? AND store_id = ?", user.ID, storeID).
		First(&rating).Error; err != nil {
		return c.JSON(http.StatusOK, echo.Map{"rating": nil})
	}

	log.Debug("User rating fetched",
		zap.Uint("user_id", user.ID),
		zap.String("store_id", storeID))
	return c.JSON(http.StatusOK, echo.Map{"rating": rating})
}

// GetStoreRatings lists a store's ratings newest first, joined with each
// submitter's name and email. Store owners may only read their own store;
// admins bypass the ownership check.
func GetStoreRatings(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	storeID := c.Param("storeId")

	if user.Role == model.RoleStoreOwner {
		var store model.Store
		if result := database.GetDB().First(&store, storeID); result.Error != nil {
			log.Warn("Store not found", zap.String("store_id", storeID))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		if store.OwnerID == nil || *store.OwnerID != user.ID {
			log.Warn("Store owner requested ratings for a store they do not own",
				zap.Uint("user_id", user.ID),
				zap.String("store_id", storeID))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only view ratings for your own store"})
		}
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var ratings []model.RatingWithUser
	err := database.GetDB().Model(&model.Rating{}).
		Select("ratings.id, ratings.user_id, ratings.store_id, ratings.rating, ratings.created_at, "+
			"users.name AS user_name, users.email AS user_email").
		Joins("JOIN users ON users.id = ratings.user_id").
		Where("ratings.store_id = ?", storeID).
		Order("ratings.created_at DESC").
		Scan(&ratings).Error
	if err != nil {
		log.Error("Failed to list store ratings", zap.String("store_id", storeID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve ratings"})
	}

	log.Info("Store ratings listed",
		zap.String("store_id", storeID),
		zap.Int("count", len(ratings)))
	return c.JSON(http.StatusOK, echo.Map{"ratings": ratings})
}

// DeleteRating removes one of the caller's own ratings. A missing row and
// someone else's row both answer 404 so rating existence is not leaked.
func DeleteRating(c echo.Context) error {
	log := logger.FromContext(c)

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id := c.Param("id")

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().
		Where("id = ? AND user_id = ?", id, user.ID).
		Delete(&model.Rating{})
	if result.Error != nil {
		log.Error("Failed to delete rating", zap.String("rating_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete rating"})
	}
	if result.RowsAffected == 0 {
		log.Warn("Rating not found or not owned by caller",
			zap.String("rating_id", id),
			zap.Uint("user_id", user.ID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "rating not found"})
	}

	log.Info("Rating deleted", zap.String("rating_id", id), zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Rating deleted successfully"})
}
