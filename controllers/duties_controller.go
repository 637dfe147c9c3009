package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/eventfund-go/models"
	service "github.com/phillip/eventfund-go/service"
	utils "github.com/phillip/eventfund-go/utils"
)

// ---------------- CREATE ----------------
func CreateDuty(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}

		var input struct {
			EventID      string `json:"event_id" binding:"required"`
			Title        string `json:"title" binding:"required"`
			Description  string `json:"description"`
			ExpenseLimit string `json:"expense_limit"`
			Deadline     string `json:"deadline"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		eventID, err := primitive.ObjectIDFromHex(input.EventID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}

		var limit *decimal.Decimal
		if input.ExpenseLimit != "" {
			parsed, err := decimal.NewFromString(input.ExpenseLimit)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense_limit"})
				return
			}
			limit = &parsed
		}

		deadline, ok := parseDeadline(input.Deadline)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deadline format, use RFC3339 or YYYY-MM-DD"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		duty, err := svc.CreateDuty(ctx, service.CreateDutyInput{
			EventID:      eventID,
			Title:        input.Title,
			Description:  input.Description,
			ExpenseLimit: limit,
			Deadline:     deadline,
		}, actor)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":      duty.ID.Hex(),
			"message": "duty created",
		})
	}
}

// ---------------- LIST ----------------
func ListDuties(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		duties, err := svc.ListDuties(ctx, eventID)
		if err != nil {
			writeError(c, err)
			return
		}
		if len(duties) == 0 {
			c.JSON(http.StatusOK, []models.Duty{})
			return
		}
		c.JSON(http.StatusOK, duties)
	}
}

// ---------------- GET ----------------
func GetDuty(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duty id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		detail, err := svc.GetDuty(ctx, oid)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

// ---------------- ASSIGN ----------------
func AssignDuty(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duty id"})
			return
		}

		var input struct {
			MemberIDs []string `json:"member_ids" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		memberIDs := make([]primitive.ObjectID, 0, len(input.MemberIDs))
		for _, raw := range input.MemberIDs {
			mid, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id: " + raw})
				return
			}
			memberIDs = append(memberIDs, mid)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := svc.AssignDuty(ctx, oid, memberIDs, actor); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "duty assigned", "id": oid.Hex()})
	}
}

// ---------------- RECEIPT SUBMIT ----------------
func SubmitReceipt(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}

		var input struct {
			AssignmentID string `form:"assignment_id" binding:"required"`
			Amount       string `form:"amount" binding:"required"`
			LineItems    string `form:"line_items"` // JSON array
		}
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		assignmentID, err := primitive.ObjectIDFromHex(input.AssignmentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignment_id"})
			return
		}
		amount, err := decimal.NewFromString(input.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}

		var lineItems []models.LineItem
		if input.LineItems != "" {
			if err := json.Unmarshal([]byte(input.LineItems), &lineItems); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line_items"})
				return
			}
		}

		// --- Evidence uploads ---
		form, err := c.MultipartForm()
		if err != nil && err != http.ErrNotMultipart {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}

		var evidenceRefs []string
		if form != nil {
			for _, fileHeader := range form.File["evidence"] {
				file, err := fileHeader.Open()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
					return
				}
				url, err := utils.UploadEvidence(file)
				file.Close()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload evidence"})
					return
				}
				evidenceRefs = append(evidenceRefs, url)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		receipt, warning, err := svc.SubmitReceipt(ctx, service.SubmitReceiptInput{
			AssignmentID: assignmentID,
			UploaderID:   actor.ID,
			Amount:       amount,
			LineItems:    lineItems,
			EvidenceRefs: evidenceRefs,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		body := gin.H{
			"id":      receipt.ID.Hex(),
			"status":  receipt.Status,
			"message": "receipt submitted",
		}
		if warning != "" {
			body["warning"] = warning
		}
		c.JSON(http.StatusCreated, body)
	}
}

// ---------------- RECEIPT REVIEW ----------------
func ReviewReceipt(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt id"})
			return
		}

		var input struct {
			Decision string `json:"decision" binding:"required"`
			Reason   string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		receipt, err := svc.ReviewReceipt(ctx, oid, actor, service.ReviewDecision(input.Decision), input.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      receipt.ID.Hex(),
			"status":  receipt.Status,
			"message": "receipt reviewed",
		})
	}
}

// ---------------- RECEIPT VOTE ----------------
func VoteReceipt(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receipt id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		voted, err := svc.VoteReceipt(ctx, oid, actor.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": oid.Hex(), "voted": voted})
	}
}

// ---------------- COMPLETE ----------------
func CompleteDuty(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duty id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		duty, err := svc.CompleteDuty(ctx, oid, actor)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      duty.ID.Hex(),
			"status":  duty.Status,
			"message": "duty completed",
		})
	}
}
