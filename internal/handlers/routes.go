package handlers

import "github.com/gin-gonic/gin"

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(), gin.Recovery())
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ping", Ping)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/token", h.Login)
	}

	r.POST("/sms/webhook/receive", h.ReceiveSms)
	r.GET("/sms/carrier/status", h.CarrierStatus)
	r.GET("/sims/marketplace", h.ListMarketplaceSims)

	api := r.Group("/", h.RequireUser())
	{
		api.GET("/users/me", h.Me)
		api.POST("/users/me/deactivate", h.DeactivateMe)

		api.POST("/api-keys", h.CreateApiKey)
		api.GET("/api-keys", h.ListApiKeys)
		api.DELETE("/api-keys/:id", h.DeleteApiKey)

		api.GET("/wallets", h.GetWallet)
		api.POST("/wallets/transactions", h.CreateTransaction)
		api.GET("/wallets/transactions", h.ListTransactions)
		api.GET("/wallets/transactions/:id", h.GetTransaction)
		api.PATCH("/wallets/transactions/:id", h.UpdateTransaction)

		api.GET("/sims", h.ListSims)
		api.POST("/sims", h.CreateSim)
		api.GET("/sims/:id", h.GetSim)
		api.PATCH("/sims/:id", h.UpdateSim)
		api.DELETE("/sims/:id", h.DeleteSim)
		api.POST("/sims/:id/activate", h.ActivateSim)
		api.POST("/sims/:id/deactivate", h.DeactivateSim)

		api.POST("/sms/send", h.SendSms)
		api.GET("/sms", h.ListSms)
		api.GET("/sms/:id", h.GetSms)
		api.PATCH("/sms/:id", h.UpdateSms)
		api.POST("/sms/:id/retry", h.RetrySms)
	}
}
