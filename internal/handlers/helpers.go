package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"lesmarket/internal/apperr"
	"lesmarket/internal/middleware"
	"lesmarket/internal/orders"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// actorFromContext rebuilds the caller identity stored by the auth middleware.
func actorFromContext(c *gin.Context) orders.Actor {
	userID, _ := c.Get(middleware.ContextUserID)
	id, _ := userID.(primitive.ObjectID)
	return orders.Actor{
		ID:   id,
		Role: c.GetString(middleware.ContextRole),
	}
}

func orderIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid order id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondAppError translates the engines' taxonomy onto {status, message}
// JSON. Only Unexpected errors get their cause logged; callers never see
// internal detail.
func respondAppError(c *gin.Context, route string, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Wrap(err, "internal server error")
	}
	if appErr.Kind == apperr.Unexpected {
		log.Printf("[%s] [ERROR] %v", route, appErr)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": appErr.Message})
		return
	}

	body := gin.H{"status": "error", "message": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus(), body)
}

// respondValidationError reports gin binding failures through the taxonomy so
// the per-field breakdown rides the same {status, message, fields} shape as
// engine validation errors.
func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		respondAppError(c, c.FullPath(), apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields[lowerCamel(fieldError.Field())] = validationMessage(fieldError)
	}
	respondAppError(c, c.FullPath(), &apperr.Error{
		Kind:    apperr.Validation,
		Message: "validation failed",
		Fields:  fields,
	})
}

func validationMessage(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fieldError.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fieldError.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fieldError.Param())
	default:
		return "is invalid"
	}
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	runes := []rune(field)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
