package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

type moveTarget struct {
	ToDay    int `json:"toDay"`
	ToPeriod int `json:"toPeriod"`
}

type linkBody struct {
	Slots []domain.SlotRef `json:"slots"`
}

type restoreBody struct {
	Target *domain.SlotKey `json:"target"`
}

func (s *Server) registerGroups(api fiber.Router) {
	tt := api.Group("/tt-groups/:day/:period/:subject")
	tt.Get("/", s.ttGroup)
	tt.Post("/move", s.moveTTGroup)
	tt.Delete("/", s.deleteTTGroup)

	linked := api.Group("/linked-groups")
	linked.Get("/", func(c *fiber.Ctx) error { return c.JSON(s.svc.State().LinkedGroups) })
	linked.Post("/", s.linkSlots)
	linked.Delete("/:id", s.unlinkGroup)
	linked.Post("/:class/:day/:period/move", s.moveLinked)
	linked.Delete("/:class/:day/:period/lessons", s.deleteLinked)

	api.Post("/elective-slots/:day/:period/:group/move", s.moveElective)
}

func (s *Server) registerParking(api fiber.Router) {
	p := api.Group("/parking/:teacher")
	p.Get("/", func(c *fiber.Ctx) error { return c.JSON(s.svc.ParkedItems(c.Params("teacher"))) })
	p.Post("/", s.park)
	p.Post("/bulk", s.parkBulk)
	p.Post("/restore-all", func(c *fiber.Ctx) error {
		return opResult(c, s.svc.RestoreAllFromParking(c.UserContext(), c.Params("teacher")))
	})
	p.Post("/:item/restore", s.restoreParked)
	p.Delete("/:item", func(c *fiber.Ctx) error {
		return opResult(c, s.svc.DiscardParked(c.UserContext(), c.Params("teacher"), c.Params("item")))
	})
}

func (s *Server) registerHistory(api fiber.Router) {
	h := api.Group("/history")
	h.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"canUndo": s.svc.CanUndo(), "canRedo": s.svc.CanRedo()})
	})
	h.Post("/snapshot", func(c *fiber.Ctx) error {
		s.svc.Snapshot()
		return opResult(c, domain.OpResult{Success: true})
	})
	h.Post("/undo", func(c *fiber.Ctx) error { return opResult(c, s.svc.Undo(c.UserContext())) })
	h.Post("/redo", func(c *fiber.Ctx) error { return opResult(c, s.svc.Redo(c.UserContext())) })
}

func groupParams(c *fiber.Ctx) (int, int, error) {
	day, err := c.ParamsInt("day")
	if err != nil {
		return 0, 0, badRequest("invalid day", err)
	}
	period, err := c.ParamsInt("period")
	if err != nil {
		return 0, 0, badRequest("invalid period", err)
	}
	return day, period, nil
}

func (s *Server) ttGroup(c *fiber.Ctx) error {
	day, period, err := groupParams(c)
	if err != nil {
		return err
	}
	return c.JSON(s.svc.TTGroup(day, period, c.Params("subject")))
}

func (s *Server) moveTTGroup(c *fiber.Ctx) error {
	day, period, err := groupParams(c)
	if err != nil {
		return err
	}
	var to moveTarget
	if err := parseBody(c, &to); err != nil {
		return err
	}
	return opResult(c, s.svc.MoveTTGroup(c.UserContext(), day, period, c.Params("subject"), to.ToDay, to.ToPeriod))
}

func (s *Server) deleteTTGroup(c *fiber.Ctx) error {
	day, period, err := groupParams(c)
	if err != nil {
		return err
	}
	return opResult(c, s.svc.DeleteTTGroup(c.UserContext(), day, period, c.Params("subject")))
}

func (s *Server) linkSlots(c *fiber.Ctx) error {
	var body linkBody
	if err := parseBody(c, &body); err != nil {
		return err
	}
	group, res := s.svc.LinkSlots(c.UserContext(), body.Slots)
	if !res.Success {
		return opResult(c, res)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"result": res, "group": group})
}

func (s *Server) unlinkGroup(c *fiber.Ctx) error {
	return opResult(c, s.svc.UnlinkGroup(c.UserContext(), c.Params("id")))
}

func (s *Server) moveLinked(c *fiber.Ctx) error {
	classID, day, period, err := slotParams(c)
	if err != nil {
		return err
	}
	var to moveTarget
	if err := parseBody(c, &to); err != nil {
		return err
	}
	return opResult(c, s.svc.MoveLinkedLessons(c.UserContext(), classID, day, period, to.ToDay, to.ToPeriod))
}

func (s *Server) deleteLinked(c *fiber.Ctx) error {
	classID, day, period, err := slotParams(c)
	if err != nil {
		return err
	}
	return opResult(c, s.svc.DeleteLinkedLessons(c.UserContext(), classID, day, period))
}

func (s *Server) moveElective(c *fiber.Ctx) error {
	day, period, err := groupParams(c)
	if err != nil {
		return err
	}
	var to moveTarget
	if err := parseBody(c, &to); err != nil {
		return err
	}
	return opResult(c, s.svc.MoveElectiveGroup(c.UserContext(), day, period, c.Params("group"), to.ToDay, to.ToPeriod))
}

func (s *Server) park(c *fiber.Ctx) error {
	var ref domain.SlotRef
	if err := parseBody(c, &ref); err != nil {
		return err
	}
	return opResult(c, s.svc.MoveToParking(c.UserContext(), c.Params("teacher"), ref.ClassID, ref.Day, ref.Period))
}

func (s *Server) parkBulk(c *fiber.Ctx) error {
	var filter core.ParkingFilter
	if len(c.Body()) > 0 {
		if err := parseBody(c, &filter); err != nil {
			return err
		}
	}
	return opResult(c, s.svc.MoveToParkingBulk(c.UserContext(), c.Params("teacher"), filter))
}

func (s *Server) restoreParked(c *fiber.Ctx) error {
	var body restoreBody
	if len(c.Body()) > 0 {
		if err := parseBody(c, &body); err != nil {
			return err
		}
	}
	return opResult(c, s.svc.RestoreFromParking(c.UserContext(), c.Params("teacher"), c.Params("item"), body.Target))
}
