package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	service "github.com/phillip/eventfund-go/service"
)

// ---------------- FEED ----------------
func EventFeed(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		feed, err := svc.UnifiedFeed(ctx, oid, limit, offset)
		if err != nil {
			writeError(c, err)
			return
		}
		if len(feed) == 0 {
			c.JSON(http.StatusOK, []service.FeedItem{})
			return
		}
		c.JSON(http.StatusOK, feed)
	}
}

// ---------------- BALANCE ----------------
func EventBalance(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		balance, err := svc.Balance(ctx, oid)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"event_id": oid.Hex(), "balance": balance})
	}
}

// ---------------- PROGRESS ----------------
func MemberProgress(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}
		memberID, err := primitive.ObjectIDFromHex(c.Param("member_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		progress, err := svc.ProgressFor(ctx, eventID, memberID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, progress)
	}
}

// ---------------- LEADERBOARD ----------------
func EventLeaderboard(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		oid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		rows, err := svc.Leaderboard(ctx, oid)
		if err != nil {
			writeError(c, err)
			return
		}
		if len(rows) == 0 {
			c.JSON(http.StatusOK, []service.LeaderboardRow{})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// ---------------- RANK ----------------
func MemberRank(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}
		memberID, err := primitive.ObjectIDFromHex(c.Param("member_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rank, err := svc.RankFor(ctx, eventID, memberID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rank)
	}
}
