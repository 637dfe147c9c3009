package routes

import (
	"github.com/gin-gonic/gin"

	config "github.com/phillip/eventfund-go/config"
	controllers "github.com/phillip/eventfund-go/controllers"
	middleware "github.com/phillip/eventfund-go/middleware"
	service "github.com/phillip/eventfund-go/service"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, svc *service.Service) {
	// public
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// protected
	auth := middleware.AuthMiddleware(cfg)

	events := r.Group("/events")
	events.Use(auth)
	{
		events.POST("", controllers.CreateEvent(svc))
		events.GET("", controllers.ListEvents(svc))
		events.GET("/:id", controllers.GetEvent(svc))
		events.PATCH("/:id/trust", controllers.UpdateTrust(svc))
		events.POST("/:id/join", controllers.JoinEvent(svc))
		events.GET("/:id/members", controllers.ListMembers(svc))

		// budget allocation
		events.PUT("/:id/budget/goal", controllers.SetBudgetGoal(svc))
		events.POST("/:id/budget/distribute", controllers.DistributeBudget(svc))
		events.POST("/:id/budget/assign", controllers.AssignBudget(svc))

		// reconciliation
		events.GET("/:id/contributions", controllers.ListContributions(svc))
		events.GET("/:id/duties", controllers.ListDuties(svc))
		events.GET("/:id/feed", controllers.EventFeed(svc))
		events.GET("/:id/balance", controllers.EventBalance(svc))
		events.GET("/:id/leaderboard", controllers.EventLeaderboard(svc))
		events.GET("/:id/progress/:member_id", controllers.MemberProgress(svc))
		events.GET("/:id/rank/:member_id", controllers.MemberRank(svc))
	}

	contributions := r.Group("/contributions")
	contributions.Use(auth)
	{
		contributions.POST("", controllers.SubmitContribution(svc))
		contributions.GET("/:id", controllers.GetContribution(svc))
		contributions.PATCH("/:id/approve", controllers.ApproveContribution(svc))
		contributions.PATCH("/:id/reject", controllers.RejectContribution(svc))
		contributions.PATCH("/:id/receipt", controllers.IssueContributionReceipt(svc))
	}

	duties := r.Group("/duties")
	duties.Use(auth)
	{
		duties.POST("", controllers.CreateDuty(svc))
		duties.GET("/:id", controllers.GetDuty(svc))
		duties.POST("/:id/assign", controllers.AssignDuty(svc))
		duties.PATCH("/:id/complete", controllers.CompleteDuty(svc))
	}

	receipts := r.Group("/receipts")
	receipts.Use(auth)
	{
		receipts.POST("", controllers.SubmitReceipt(svc))
		receipts.PATCH("/:id/review", controllers.ReviewReceipt(svc))
		receipts.POST("/:id/vote", controllers.VoteReceipt(svc))
	}
}
