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
	"github.com/phillip/eventfund-go/store"
	utils "github.com/phillip/eventfund-go/utils"
)

// ---------------- SUBMIT ----------------
func SubmitContribution(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}

		var input struct {
			EventID           string `form:"event_id" binding:"required"`
			Amount            string `form:"amount" binding:"required"`
			Method            string `form:"method" binding:"required"`
			ExternalReference string `form:"external_reference"`
		}
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		eventID, err := primitive.ObjectIDFromHex(input.EventID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}
		amount, err := decimal.NewFromString(input.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}

		// --- Optional payment proof upload ---
		var proofURL string
		if fileHeader, err := c.FormFile("proof"); err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
				return
			}
			proofURL, err = utils.UploadPaymentProof(file)
			file.Close()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload payment proof"})
				return
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		contribution, err := svc.SubmitContribution(ctx, service.SubmitContributionInput{
			EventID:           eventID,
			MemberID:          actor.ID,
			Amount:            amount,
			Method:            models.PaymentMethod(input.Method),
			ExternalReference: input.ExternalReference,
			ReceiptURL:        proofURL,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":      contribution.ID.Hex(),
			"status":  contribution.Status,
			"message": "contribution recorded",
		})
	}
}

// ---------------- LIST ----------------
func ListContributions(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		// --- Build filter ---
		var filter store.ContributionFilter
		if raw := c.Query("member_id"); raw != "" {
			if oid, err := primitive.ObjectIDFromHex(raw); err == nil {
				filter.MemberID = oid
			}
		}
		if status := c.Query("status"); status != "" {
			filter.Status = models.ContributionStatus(status)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		contributions, err := svc.ListContributions(ctx, eventID, filter)
		if err != nil {
			writeError(c, err)
			return
		}
		if len(contributions) == 0 {
			c.JSON(http.StatusOK, []models.Contribution{})
			return
		}

		// --- ETag from the most recently updated row ---
		latest := contributions[0]
		for _, ctn := range contributions {
			if ctn.UpdatedAt.After(latest.UpdatedAt) {
				latest = ctn
			}
		}
		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, contributions)
	}
}

// ---------------- GET ----------------
func GetContribution(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		contribution, err := svc.GetContribution(ctx, oid)
		if err != nil {
			writeError(c, err)
			return
		}

		etag := utils.GenerateETag(contribution.ID, contribution.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, contribution)
	}
}

// ---------------- APPROVE ----------------
func ApproveContribution(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		contribution, err := svc.ApproveContribution(ctx, oid, actor)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      contribution.ID.Hex(),
			"status":  contribution.Status,
			"message": "contribution verified",
		})
	}
}

// ---------------- REJECT ----------------
func RejectContribution(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		contribution, err := svc.RejectContribution(ctx, oid, actor, input.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      contribution.ID.Hex(),
			"status":  contribution.Status,
			"message": "contribution rejected",
		})
	}
}

// ---------------- RECEIPT ----------------
func IssueContributionReceipt(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contribution id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		contribution, err := svc.IssueContributionReceipt(ctx, oid, actor)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      contribution.ID.Hex(),
			"status":  contribution.Status,
			"message": "receipt issued",
		})
	}
}
