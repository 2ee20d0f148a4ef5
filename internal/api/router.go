package api

import (
	"plaza_backoffice/internal/api/handler"
	"plaza_backoffice/internal/api/middleware"
	"plaza_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(
	as *service.AuthService,
	rs *service.RegistryService,
	os *service.OccupancyService,
	pays *service.PaymentService,
	ss *service.StatsService,
	lprService *service.LPRService,
	authMw *middleware.AuthMiddleware,
) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		lotH := handler.NewParkingLotHandler(rs)
		spaceH := handler.NewParkingSpaceHandler(rs)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.AuthorizeRole("admin"), lotH.CreateParkingLot)
			lotRoutes.GET("", lotH.GetAllParkingLots)
			lotRoutes.GET("/:id", lotH.GetParkingLotByID)
			lotRoutes.PATCH("/:id", authMw.AuthorizeRole("admin"), lotH.PatchParkingLot)

			spaceRoutesInLot := lotRoutes.Group("/:id/spaces")
			{
				spaceRoutesInLot.POST("", authMw.AuthorizeRole("admin"), spaceH.CreateParkingSpace)
				spaceRoutesInLot.GET("", spaceH.GetSpacesByLot)
			}
		}

		spaceRoutes := v1.Group("/parking-spaces")
		{
			spaceRoutes.GET("/:id", spaceH.GetSpaceByID)
			spaceRoutes.DELETE("/:id", authMw.AuthorizeRole("admin"), spaceH.DeleteSpace)
		}

		parkingH := handler.NewParkingHandler(os)
		parkingRoutes := v1.Group("/parking")
		parkingRoutes.Use(authMw.AuthorizeRole("admin", "operator"))
		{
			parkingRoutes.POST("/entry", parkingH.VehicleEntry)
			parkingRoutes.POST("/exit", parkingH.VehicleExit)
			parkingRoutes.GET("/occupancy", parkingH.CurrentOccupancy)
			parkingRoutes.GET("/sessions/open", parkingH.OpenSessions)
		}

		paymentH := handler.NewPaymentHandler(pays)
		paymentRoutes := v1.Group("/payments")
		paymentRoutes.Use(authMw.AuthorizeRole("admin", "operator"))
		{
			paymentRoutes.POST("", paymentH.Pay)
			paymentRoutes.POST("/batch-generate", authMw.AuthorizeRole("admin"), paymentH.BatchGenerate)
			paymentRoutes.GET("/:sessionKey", paymentH.GetByKey)
		}

		statsH := handler.NewStatsHandler(ss)
		statsRoutes := v1.Group("/statistics")
		{
			statsRoutes.GET("/summary", statsH.Summary)
			statsRoutes.GET("/hourly", statsH.Hourly)
			statsRoutes.GET("/daily", statsH.Daily)
			statsRoutes.GET("/peak-utilization", statsH.PeakUtilization)
		}

		if lprService != nil {
			lprH := handler.NewLPRHandler(lprService)
			lprRoutes := v1.Group("/lpr")
			lprRoutes.Use(authMw.AuthorizeRole("admin", "operator"))
			{
				lprRoutes.POST("/process-image", lprH.ProcessImage)
			}
		}
	}
	return r
}
