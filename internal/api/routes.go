package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"domusreport/server/internal/database"
)

func SetupRoutes(router *gin.Engine, handler *Handler, geocoder database.Geocoder) {
	router.Use(cors.Default())

	api := router.Group("/api")
	{
		api.POST("/valuations", handler.CreateValuation)
		api.GET("/leads", handler.GetRecentLeads)
		api.GET("/leads/stats", handler.GetLeadStats)
		api.GET("/reference/:city", handler.GetCityReference)
		api.GET("/zones/:city/hulls", handler.GetZoneHulls)
		api.GET("/cities", handler.GetCities)
		api.POST("/refresh-dataset", handler.RefreshDataset)
		api.POST("/update-coordinates", handler.UpdateCoordinates(geocoder))
		api.GET("/telegram-config", handler.GetTelegramConfig)
		api.POST("/telegram-config", handler.UpdateTelegramConfig)
	}
}
