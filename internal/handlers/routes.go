package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the API under router (normally /api/v1).
func RegisterRoutes(router fiber.Router, jobs *JobHandler, candidates *CandidateHandler, interviews *InterviewHandler) {
	router.Post("/jobs", jobs.HandleCreate)
	router.Get("/jobs", jobs.HandleList)
	router.Get("/jobs/:id", jobs.HandleGet)
	router.Put("/jobs/:id", jobs.HandleUpdate)
	router.Delete("/jobs/:id", jobs.HandleDelete)

	router.Post("/candidates", candidates.HandleCreate)
	router.Get("/candidates/:id", candidates.HandleGet)
	router.Delete("/candidates/:id", candidates.HandleDelete)
	router.Post("/candidates/:id/resume", candidates.HandleUploadResume)

	router.Post("/interviews", interviews.HandleCreate)
	// Registered before /interviews/:id so "search" is not taken for an id.
	router.Get("/interviews/search", interviews.HandleSearch)
	router.Get("/interviews/:id", interviews.HandleGet)
	router.Get("/interviews/:id/config", interviews.HandleGetConfig)
	router.Post("/interviews/:id/reply", interviews.HandleReply)
	router.Post("/interviews/:id/end", interviews.HandleEnd)
	router.Post("/interviews/:id/video", interviews.HandleUploadVideo)
}
