package server

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/vannot/vannot/pkg/core"
)

var validate = validator.New()

// createVideoRequest registers a video by its original file name. The media
// bytes stay on the client; the server only keeps annotations.
type createVideoRequest struct {
	FileName string `json:"fileName" validate:"required,min=1,max=255"`
}

// saveObjectsRequest carries a batch of objects to merge into the container.
type saveObjectsRequest struct {
	Objects []core.AnnotatedObject `json:"objects" validate:"required"`
}

func parseBody[T any](c fiber.Ctx) (T, error) {
	var req T
	if err := c.Bind().Body(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := validate.Struct(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return req, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return "validation failed: " + strings.Join(fields, ", ")
	}
	return "validation failed"
}

// decodeParam unescapes a path segment; object names carry spaces and
// non-ASCII characters.
func decodeParam(raw string) (string, error) {
	return url.PathUnescape(raw)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleCreateVideo(c fiber.Ctx) error {
	req, err := parseBody[createVideoRequest](c)
	if err != nil {
		return err
	}

	info, err := s.svc.CreateVideo(c.Context(), req.FileName)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "success",
		"video":  info,
	})
}

func (s *Server) handleListVideos(c fiber.Ctx) error {
	videos, err := s.svc.ListVideos(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"videos": videos,
	})
}

func (s *Server) handleGetVideo(c fiber.Ctx) error {
	info, err := s.svc.GetVideo(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"video":  info,
	})
}

func (s *Server) handleDeleteVideo(c fiber.Ctx) error {
	if err := s.svc.DeleteVideo(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success"})
}

func (s *Server) handleGetObjects(c fiber.Ctx) error {
	objects, header, err := s.svc.GetObjects(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"source":  header.VideoName,
		"count":   len(objects),
		"objects": objects,
	})
}

func (s *Server) handleSaveObjects(c fiber.Ctx) error {
	req, err := parseBody[saveObjectsRequest](c)
	if err != nil {
		return err
	}
	for i := range req.Objects {
		if g := req.Objects[i].Geometry; g != nil {
			if err := g.Validate(); err != nil {
				return fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("object %d: %s", i+1, err))
			}
		}
	}

	merged, err := s.svc.SaveObjects(c.Context(), c.Params("id"), req.Objects)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"count":   len(merged),
		"objects": merged,
	})
}

func (s *Server) handleDeleteObject(c fiber.Ctx) error {
	name, err := decodeParam(c.Params("name"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed object name")
	}
	if err := s.svc.DeleteObject(c.Context(), c.Params("id"), name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "success"})
}

func (s *Server) handleExport(c fiber.Ctx) error {
	text, err := s.svc.RawContainer(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/vtt; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="annotations.vtt"`)
	return c.SendString(text)
}

func (s *Server) handleProject(c fiber.Ctx) error {
	data, name, err := s.svc.ExportProject(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if strings.HasSuffix(name, ".gz") {
		c.Set(fiber.HeaderContentType, "application/gzip")
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(data)
}

func (s *Server) handleSearch(c fiber.Ctx) error {
	if s.repo == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "search index not available")
	}
	rows, err := s.repo.FindObjects(c.Query("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"count":   len(rows),
		"objects": rows,
	})
}
