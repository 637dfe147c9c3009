package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/eventfund-go/models"
	service "github.com/phillip/eventfund-go/service"
	utils "github.com/phillip/eventfund-go/utils"
)

// parseDeadline accepts RFC3339 plus a few date-only fallbacks that the
// dashboard forms tend to send.
func parseDeadline(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	layouts := []string{"2006-01-02", "2006-01-02 15:04", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// ---------------- CREATE ----------------
func CreateEvent(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}

		// --- Bind form fields ---
		var input struct {
			Title          string   `form:"title" binding:"required"`
			Description    string   `form:"description"`
			Location       string   `form:"location"`
			BudgetGoal     string   `form:"budget_goal"`
			Deadline       string   `form:"deadline"`
			AutoVerify     bool     `form:"auto_verify"`
			ConfirmMethods []string `form:"confirm_methods"`
		}
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		goal := decimal.Zero
		if input.BudgetGoal != "" {
			parsed, err := decimal.NewFromString(input.BudgetGoal)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid budget_goal"})
				return
			}
			goal = parsed
		}

		deadline, ok := parseDeadline(input.Deadline)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deadline format, use RFC3339 or YYYY-MM-DD"})
			return
		}

		// --- Handle file uploads ---
		form, err := c.MultipartForm()
		if err != nil && err != http.ErrNotMultipart {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}

		var imageURLs []string
		if form != nil {
			for _, fileHeader := range form.File["images"] {
				file, err := fileHeader.Open()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
					return
				}
				url, err := utils.UploadEventImage(file)
				file.Close()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload image"})
					return
				}
				imageURLs = append(imageURLs, url)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		event, err := svc.CreateEvent(ctx, service.CreateEventInput{
			Title:       input.Title,
			Description: input.Description,
			Location:    input.Location,
			BudgetGoal:  goal,
			Deadline:    deadline,
			Trust: models.TrustSettings{
				AutoVerify:     input.AutoVerify,
				ConfirmMethods: input.ConfirmMethods,
			},
			Images: imageURLs,
		}, actor.ID)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":      event.ID.Hex(),
			"message": "event created",
		})
	}
}

// ---------------- LIST ----------------
func ListEvents(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var organizerID primitive.ObjectID
		if raw := c.Query("organizer_id"); raw != "" {
			oid, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organizer_id"})
				return
			}
			organizerID = oid
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		events, err := svc.ListEvents(ctx, organizerID)
		if err != nil {
			writeError(c, err)
			return
		}
		if len(events) == 0 {
			c.JSON(http.StatusOK, []models.Event{})
			return
		}

		// --- ETag from the most recently updated event ---
		latest := events[0]
		for _, ev := range events {
			if ev.UpdatedAt.After(latest.UpdatedAt) {
				latest = ev
			}
		}
		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, events)
	}
}

// ---------------- GET ----------------
func GetEvent(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		event, err := svc.GetEvent(ctx, oid)
		if err != nil {
			writeError(c, err)
			return
		}

		etag := utils.GenerateETag(event.ID, event.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, event)
	}
}

// ---------------- TRUST ----------------
func UpdateTrust(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		var input models.TrustSettings
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.SetTrust(ctx, oid, input, actor); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "trust settings updated", "id": oid.Hex()})
	}
}

// ---------------- JOIN ----------------
func JoinEvent(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		var input struct {
			Name string `json:"name"`
		}
		// body is optional; the token already identifies the member
		_ = c.ShouldBindJSON(&input)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		member, err := svc.JoinEvent(ctx, oid, actor.ID, input.Name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, member)
	}
}

// ---------------- MEMBERS ----------------
func ListMembers(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		members, err := svc.ListMembers(ctx, oid)
		if err != nil {
			writeError(c, err)
			return
		}
		if len(members) == 0 {
			c.JSON(http.StatusOK, []models.EventMember{})
			return
		}
		c.JSON(http.StatusOK, members)
	}
}
