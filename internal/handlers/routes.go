package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the resume endpoints on router. The stream route
// is registered before "/:id" routes so it is not taken for an id.
func RegisterRoutes(router fiber.Router, resumes *ResumeHandler, stream *StreamHandler) {
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	router.Get("/resumes", resumes.HandleList)
	router.Post("/resumes", resumes.HandleCreate)
	router.Get("/resumes/search", resumes.HandleSearch)
	router.Get("/resumes/stream", stream.HandleStream)
	router.Get("/resumes/:id", resumes.HandleGet)
	router.Patch("/resumes/:id", resumes.HandleUpdate)
	router.Delete("/resumes/:id", resumes.HandleDelete)
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
