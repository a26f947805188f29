package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-registry/internal/models"
	"alfredoptarigan/resume-registry/internal/repositories"
	"alfredoptarigan/resume-registry/internal/services"
)

type ResumeHandler struct {
	store services.DocumentStore
}

func NewResumeHandler(store services.DocumentStore) *ResumeHandler {
	return &ResumeHandler{
		store: store,
	}
}

// HandleList handles GET /resumes
func (h *ResumeHandler) HandleList(c *fiber.Ctx) error {
	resumes, err := h.store.List(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list resumes",
		})
	}

	return c.JSON(listResponse(resumes))
}

// HandleGet handles GET /resumes/:id
func (h *ResumeHandler) HandleGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resume ID format",
		})
	}

	resume, err := h.store.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrResumeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Resume not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get resume",
		})
	}

	return c.JSON(resume)
}

// HandleCreate handles POST /resumes
func (h *ResumeHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.ResumeFields

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	id, err := h.store.Create(c.UserContext(), req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create resume",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.CreateResumeResponse{
		ID: id.String(),
	})
}

// HandleUpdate handles PATCH /resumes/:id
func (h *ResumeHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resume ID format",
		})
	}

	var req models.ResumeUpdate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one field is required",
		})
	}

	if err := h.store.Update(c.UserContext(), id, req); err != nil {
		if errors.Is(err, repositories.ErrResumeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Resume not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update resume",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleDelete handles DELETE /resumes/:id
func (h *ResumeHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resume ID format",
		})
	}

	if err := h.store.Delete(c.UserContext(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete resume",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSearch handles GET /resumes/search?q=
func (h *ResumeHandler) HandleSearch(c *fiber.Ctx) error {
	query := c.Query("q")

	resumes, err := h.store.QueryRange(c.UserContext(), models.FieldName, query, services.PrefixUpperBound(query))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search resumes",
		})
	}

	return c.JSON(listResponse(resumes))
}

func listResponse(resumes []models.Resume) models.ResumeListResponse {
	if resumes == nil {
		resumes = []models.Resume{}
	}
	return models.ResumeListResponse{
		Resumes: resumes,
		Count:   len(resumes),
	}
}
