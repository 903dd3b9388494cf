package handlers

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler of the API
type Handlers struct {
	Auth       *AdminAuthHandler
	Payments   *PaymentHandler
	Meetings   *MeetingHandler
	Checklists *ChecklistHandler
	Businesses *BusinessHandler
	Clients    *ClientHandler
	Search     *SearchHandler
	StoryBrand *StoryBrandHandler
}

// Guards are the authorization middlewares RegisterRoutes mounts
type Guards struct {
	// Admin runs in front of every back-office route
	Admin []gin.HandlerFunc
	// DirectTransfer runs in front of the payment webhook
	DirectTransfer gin.HandlerFunc
}

// RegisterRoutes mounts the API. Webhooks, payment links, operator login and
// the reads and intake used by the client onboarding form are public; every
// other route runs behind guards.Admin. Direct transfers posted to the
// payment webhook go through guards.DirectTransfer.
func RegisterRoutes(router *gin.Engine, h Handlers, guards Guards) {
	webhook := []gin.HandlerFunc{h.Payments.ReceivePayment}
	if guards.DirectTransfer != nil {
		webhook = append([]gin.HandlerFunc{guards.DirectTransfer}, webhook...)
	}

	public := router.Group("/api")
	{
		public.POST("/webhook/receive-payment", webhook...)
		// the calendar provider is configured with the triple-o path
		public.POST("/webhoook/client/appointment", h.Meetings.ReceiveAppointment)
		public.POST("/webhook/client/appointment", h.Meetings.ReceiveAppointment)

		public.POST("/pagoplux/generate-payment-link", h.Payments.GeneratePaymentLink)

		public.GET("/business/:businessId", h.Businesses.Get)
		public.POST("/business/consultancy-data/:businessId", h.Businesses.SubmitIntake)
		public.GET("/client/:clientId/business/:businessId", h.Clients.OwnedBusiness)
		public.GET("/clients/:clientId/meeting-status", h.Meetings.ClientMeetingStatus)

		auth := public.Group("/admin/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/logout", h.Auth.Logout)
		}
	}

	admin := router.Group("/api", guards.Admin...)
	{
		auth := admin.Group("/admin/auth")
		{
			auth.GET("/profile", h.Auth.GetProfile)
			auth.POST("/change-password", h.Auth.ChangePassword)
			auth.POST("/create", h.Auth.CreateAdmin)
		}

		admin.POST("/transactions", h.Payments.RecordTransfer)
		admin.GET("/pagoplux/payment-intents", h.Payments.ListIntents)
		admin.GET("/payments/summary", h.Payments.Summary)

		admin.PATCH("/client/meetings/:meetingId/asign", h.Meetings.AssignMeeting)
		admin.GET("/client/meeting/unassigned", h.Meetings.ListUnassigned)
		admin.POST("/client/:clientId/confirm-strategy-meeting", h.Meetings.ConfirmStrategyMeeting)
		admin.POST("/client/:clientId/complete-data-strategy-meeting", h.Meetings.CompleteDataStrategyMeeting)
		admin.GET("/client/:clientId/all-meetings", h.Meetings.ListByClient)
		admin.PATCH("/meeting/:meetingId/status", h.Meetings.UpdateStatus)
		admin.DELETE("/meeting/:meetingId", h.Meetings.DeleteMeeting)

		checklist := admin.Group("/checklist/:businessId")
		{
			checklist.GET("", h.Checklists.Get)
			checklist.GET("/progress", h.Checklists.Progress)
			checklist.POST("/next-phase", h.Checklists.NextPhase)
			checklist.PATCH("/phase/:phaseId/item/:itemId", h.Checklists.SetItem)
			checklist.PATCH("/phase/:phaseId/observations", h.Checklists.UpdateObservations)
		}

		admin.PATCH("/business/edit/:businessId", h.Businesses.Edit)
		admin.POST("/business/send-upload-reminders", h.Businesses.SendUploadReminders)
		admin.DELETE("/business/:businessId", h.Businesses.Delete)
		admin.POST("/business/:businessId/managers", h.Businesses.AddManager)
		admin.GET("/business/:businessId/managers", h.Businesses.ListManagers)
		admin.DELETE("/business/:businessId/managers/:managerId", h.Businesses.RemoveManager)
		admin.POST("/business/:businessId/handoff", h.Businesses.CreateHandoff)
		admin.GET("/business/:businessId/handoff", h.Businesses.GetHandoff)

		admin.GET("/clients", h.Clients.List)
		admin.GET("/client/:clientId", h.Clients.Detail)
		admin.DELETE("/client/:clientId", h.Clients.Forget)

		admin.GET("/search", h.Search.Search)

		storybrand := admin.Group("/storybrand-account")
		{
			storybrand.POST("", h.StoryBrand.Create)
			storybrand.PUT("/password", h.StoryBrand.ChangePassword)
			storybrand.DELETE("/:userId", h.StoryBrand.Delete)
			storybrand.GET("/client/:clientId", h.StoryBrand.ListByClient)
		}
	}
}
