package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	service "github.com/phillip/eventfund-go/service"
	"github.com/phillip/eventfund-go/store"
)

// actorFrom builds the caller identity from what the auth middleware
// resolved. The second return is false when the token carried no usable
// user id.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	uid, err := primitive.ObjectIDFromHex(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return service.Actor{}, false
	}
	return service.Actor{ID: uid, Role: c.GetString("role")}, true
}

// writeError maps the engine's error taxonomy onto HTTP responses. Every
// rejected mutation returns a typed, explainable body; nothing fails
// silently.
func writeError(c *gin.Context, err error) {
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
		return
	}
	var dup *store.DuplicateReferenceError
	if errors.As(err, &dup) {
		c.JSON(http.StatusConflict, gin.H{
			"error":       dup.Error(),
			"reference":   dup.Reference,
			"existing_id": dup.ExistingID,
		})
		return
	}
	var pending *store.PendingExpensesError
	if errors.As(err, &pending) {
		c.JSON(http.StatusConflict, gin.H{"error": pending.Error(), "pending_receipts": pending.Pending})
		return
	}
	var conflict *store.StateConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "current_status": conflict.Current})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
	case errors.Is(err, store.ErrNoMembers):
		c.JSON(http.StatusBadRequest, gin.H{"error": "event has no members"})
	case errors.Is(err, store.ErrInvalidVote):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot vote for your own receipt"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
