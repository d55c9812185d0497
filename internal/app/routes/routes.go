package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/hostelhub/internal/app/controllers"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/middleware"
)

// Controllers groups every handler the router mounts
type Controllers struct {
	Auth    *controllers.AuthController
	Hostel  *controllers.HostelController
	Student *controllers.StudentController
	Billing *controllers.BillingController
	Health  *controllers.HealthController
}

var (
	adminOnly   = []models.RoleType{models.RoleAdmin}
	hostelAdmin = []models.RoleType{models.RoleAdmin, models.RoleOwner}
	staff       = []models.RoleType{models.RoleAdmin, models.RoleOwner, models.RoleManager}
)

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/health", c.Health.Health)

	v1 := router.Group("/api/v1")
	v1.GET("/health", c.Health.Health)

	auth := v1.Group("/auth")
	{
		auth.POST("/login", c.Auth.Login)
	}

	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	staffOnly := authMiddleware.RolesAllowed(staff...)

	hostels := authenticated.Group("/hostels")
	{
		hostels.POST("", authMiddleware.RolesAllowed(hostelAdmin...), c.Hostel.CreateHostel)
		hostels.GET("", staffOnly, c.Hostel.ListHostels)
		hostels.PATCH("/:id/status", authMiddleware.RolesAllowed(hostelAdmin...), c.Hostel.SetHostelStatus)
		hostels.POST("/:id/rooms", staffOnly, c.Hostel.CreateRoom)
		hostels.GET("/:id/rooms", staffOnly, c.Hostel.ListRooms)
		hostels.GET("/:id/students", staffOnly, c.Student.ListStudents)
		hostels.GET("/:id/payments", staffOnly, c.Billing.ListHostelPayments)
		hostels.GET("/:id/subscriptions", authMiddleware.RolesAllowed(hostelAdmin...), c.Billing.ListSubscriptions)
	}

	rooms := authenticated.Group("/rooms")
	rooms.Use(staffOnly)
	{
		rooms.GET("/:id", c.Hostel.GetRoom)
		rooms.PATCH("/:id/beds", c.Hostel.ResizeRoom)
		rooms.POST("/:id/reconcile", c.Hostel.ReconcileRoom)
	}

	students := authenticated.Group("/students")
	{
		students.POST("", staffOnly, c.Student.Admit)
		students.GET("/:id", c.Student.GetStudent)
		students.POST("/:id/move", staffOnly, c.Student.Move)
		students.DELETE("/:id", staffOnly, c.Student.Depart)
		students.GET("/:id/payments", c.Student.ListPayments)
	}

	billing := authenticated.Group("/billing")
	billing.Use(authMiddleware.RolesAllowed(adminOnly...))
	{
		billing.POST("/generate", c.Billing.GenerateMonthlyDues)
		billing.POST("/overdue", c.Billing.MarkOverdue)
	}

	payments := authenticated.Group("/payments")
	{
		payments.POST("", staffOnly, c.Billing.CreateCharge)
		payments.POST("/:id/proof", c.Billing.SubmitProof)
		payments.POST("/:id/verify", staffOnly, c.Billing.Verify)
		payments.POST("/:id/record", staffOnly, c.Billing.RecordPayment)
	}

	subscriptions := authenticated.Group("/subscriptions")
	subscriptions.Use(authMiddleware.RolesAllowed(adminOnly...))
	{
		subscriptions.POST("/generate", c.Billing.GenerateSubscriptions)
		subscriptions.POST("/:id/paid", c.Billing.MarkSubscriptionPaid)
	}
}
