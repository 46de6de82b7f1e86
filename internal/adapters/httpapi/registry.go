package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

type unavailableBody struct {
	Slots []string `json:"slots"`
}

type ruleBody struct {
	Enabled   *bool `json:"enabled"`
	Threshold *int  `json:"threshold"`
}

// crud registers add/update/delete for an id-keyed registry entity. The
// path :id overrides any id in an update body.
func crud[T any](r fiber.Router, path string,
	add func(context.Context, T) domain.OpResult,
	update func(context.Context, T) domain.OpResult,
	del func(context.Context, string) domain.OpResult,
	setID func(*T, string),
) {
	r.Post(path, func(c *fiber.Ctx) error {
		var v T
		if err := parseBody(c, &v); err != nil {
			return err
		}
		res := add(c.UserContext(), v)
		if res.Success {
			c.Status(fiber.StatusCreated)
		}
		return opResult(c, res)
	})
	updateDelete(r, path, update, del, setID)
}

// crudGenerated is crud for entities whose id is assigned on create; the
// created record is returned alongside the result.
func crudGenerated[T any](r fiber.Router, path string,
	add func(context.Context, T) (T, domain.OpResult),
	update func(context.Context, T) domain.OpResult,
	del func(context.Context, string) domain.OpResult,
	setID func(*T, string),
) {
	r.Post(path, func(c *fiber.Ctx) error {
		var v T
		if err := parseBody(c, &v); err != nil {
			return err
		}
		created, res := add(c.UserContext(), v)
		if !res.Success {
			return opResult(c, res)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"result": res, "record": created})
	})
	updateDelete(r, path, update, del, setID)
}

func updateDelete[T any](r fiber.Router, path string,
	update func(context.Context, T) domain.OpResult,
	del func(context.Context, string) domain.OpResult,
	setID func(*T, string),
) {
	r.Put(path+"/:id", func(c *fiber.Ctx) error {
		var v T
		if err := parseBody(c, &v); err != nil {
			return err
		}
		setID(&v, c.Params("id"))
		return opResult(c, update(c.UserContext(), v))
	})
	r.Delete(path+"/:id", func(c *fiber.Ctx) error {
		return opResult(c, del(c.UserContext(), c.Params("id")))
	})
}

func (s *Server) registerRegistry(api fiber.Router) {
	svc := s.svc
	api.Get("/teachers", func(c *fiber.Ctx) error { return c.JSON(svc.State().Teachers) })
	crud(api, "/teachers", svc.AddTeacher, svc.UpdateTeacher, svc.DeleteTeacher,
		func(t *domain.Teacher, id string) { t.ID = id })

	api.Get("/categories", func(c *fiber.Ctx) error { return c.JSON(svc.State().Categories) })
	crud(api, "/categories", svc.AddCategory, svc.UpdateCategory, svc.DeleteCategory,
		func(v *domain.Category, id string) { v.ID = id })

	api.Get("/subjects", func(c *fiber.Ctx) error { return c.JSON(svc.State().Subjects) })
	crud(api, "/subjects", svc.AddSubject, svc.UpdateSubject, svc.DeleteSubject,
		func(v *domain.Subject, id string) { v.ID = id })

	api.Get("/rooms", func(c *fiber.Ctx) error { return c.JSON(svc.State().SpecialClassrooms) })
	crud(api, "/rooms", svc.AddSpecialClassroom, svc.UpdateSpecialClassroom, svc.DeleteSpecialClassroom,
		func(v *domain.SpecialClassroom, id string) { v.ID = id })

	api.Get("/meetings", func(c *fiber.Ctx) error { return c.JSON(svc.State().Meetings) })
	crudGenerated(api, "/meetings", svc.AddMeeting, svc.UpdateMeeting, svc.DeleteMeeting,
		func(v *domain.Meeting, id string) { v.ID = id })

	api.Get("/elective-groups", func(c *fiber.Ctx) error { return c.JSON(svc.State().ElectiveGroups) })
	crudGenerated(api, "/elective-groups", svc.AddElectiveGroup, svc.UpdateElectiveGroup, svc.DeleteElectiveGroup,
		func(v *domain.ElectiveGroup, id string) { v.ID = id })

	api.Get("/assignments", func(c *fiber.Ctx) error { return c.JSON(svc.State().Assignments) })
	api.Put("/assignments", func(c *fiber.Ctx) error {
		var a domain.Assignment
		if err := parseBody(c, &a); err != nil {
			return err
		}
		return opResult(c, svc.SetAssignment(c.UserContext(), a))
	})
	api.Delete("/assignments/:teacher/:subject/:class", func(c *fiber.Ctx) error {
		key := domain.AssignmentKey{TeacherID: c.Params("teacher"), SubjectID: c.Params("subject"), ClassID: c.Params("class")}
		return opResult(c, svc.DeleteAssignment(c.UserContext(), key))
	})

	api.Get("/settings", func(c *fiber.Ctx) error { return c.JSON(svc.State().Settings) })
	api.Put("/settings", func(c *fiber.Ctx) error {
		var settings domain.Settings
		if err := parseBody(c, &settings); err != nil {
			return err
		}
		return opResult(c, svc.UpdateSettings(c.UserContext(), settings))
	})
	api.Put("/unavailable/:teacher", func(c *fiber.Ctx) error {
		var body unavailableBody
		if err := parseBody(c, &body); err != nil {
			return err
		}
		return opResult(c, svc.SetUnavailable(c.UserContext(), c.Params("teacher"), body.Slots))
	})
}

func (s *Server) registerValidation(api fiber.Router) {
	api.Get("/validation", func(c *fiber.Ctx) error {
		report, err := s.svc.Validate(c.UserContext())
		if err != nil {
			return err
		}
		placed, required := s.svc.PlacementTotals()
		return c.JSON(fiber.Map{
			"report":   report,
			"summary":  report.Summary(),
			"placed":   placed,
			"required": required,
		})
	})
	api.Get("/rules", func(c *fiber.Ctx) error { return c.JSON(s.svc.Rules()) })
	api.Patch("/rules/:id", func(c *fiber.Ctx) error {
		var body ruleBody
		if err := parseBody(c, &body); err != nil {
			return err
		}
		if body.Enabled == nil && body.Threshold == nil {
			return fiber.NewError(fiber.StatusBadRequest, "enabled or threshold required")
		}
		id := c.Params("id")
		if body.Enabled != nil {
			if res := s.svc.SetRuleEnabled(c.UserContext(), id, *body.Enabled); !res.Success {
				return opResult(c, res)
			}
		}
		if body.Threshold != nil {
			if res := s.svc.SetRuleThreshold(c.UserContext(), id, *body.Threshold); !res.Success {
				return opResult(c, res)
			}
		}
		return c.JSON(s.svc.Rules())
	})
}
