package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mkt918/timetable-kun-v1-sub000/internal/core"
)

type lessonBody struct {
	SubjectID  string   `json:"subjectId"`
	TeacherIDs []string `json:"teacherIds"`
	RoomIDs    []string `json:"specialClassroomIds"`
	Append     bool     `json:"append"`
}

type moveLessonBody struct {
	ClassID    string   `json:"classId"`
	FromDay    int      `json:"fromDay"`
	FromPeriod int      `json:"fromPeriod"`
	SubjectID  string   `json:"subjectId"`
	TeacherIDs []string `json:"teacherIds"`
	ToDay      int      `json:"toDay"`
	ToPeriod   int      `json:"toPeriod"`
}

type proposalBody struct {
	ClassID    string   `json:"classId"`
	Day        int      `json:"day"`
	Period     int      `json:"period"`
	SubjectID  string   `json:"subjectId"`
	TeacherIDs []string `json:"teacherIds"`
	RoomIDs    []string `json:"specialClassroomIds"`
}

type commitBody struct {
	Proposal core.Proposal      `json:"proposal"`
	Mode     core.PlacementMode `json:"mode"`
}

func (s *Server) registerTimetable(api fiber.Router) {
	api.Get("/state", s.getState)
	api.Get("/classes", func(c *fiber.Ctx) error { return c.JSON(s.svc.Classes()) })

	slot := api.Group("/timetable/:class/:day/:period")
	slot.Get("/", s.getSlot)
	slot.Put("/", s.putSlot)
	slot.Delete("/", s.clearSlot)
	slot.Delete("/lessons/:subject", s.removeLesson)
	slot.Delete("/lessons/:subject/teachers/:teacher", s.removeTeacher)
	slot.Get("/kind", s.slotKind)

	api.Post("/lessons/move", s.moveLesson)
	api.Get("/placed-hours", s.placedHours)

	api.Post("/proposals", s.propose)
	api.Post("/proposals/commit", s.commit)

	api.Get("/conflicts", func(c *fiber.Ctx) error { return c.JSON(s.svc.CheckConflicts()) })
	api.Get("/conflicts/check", s.checkTT)
}

func (s *Server) getState(c *fiber.Ctx) error {
	return c.JSON(s.svc.State())
}

func (s *Server) getSlot(c *fiber.Ctx) error {
	classID, day, period, err := slotParams(c)
	if err != nil {
		return err
	}
	return c.JSON(s.svc.GetSlot(classID, day, period))
}

func (s *Server) putSlot(c *fiber.Ctx) error {
	classID, day, period, err := slotParams(c)
	if err != nil {
		return err
	}
	var body lessonBody
	if err := parseBody(c, &body); err != nil {
		return err
	}
	ok := s.svc.SetSlot(c.UserContext(), classID, day, period, body.SubjectID, body.TeacherIDs, body.RoomIDs, body.Append)
	return boolResult(c, ok, "slot not updated")
}

func (s *Server) clearSlot(c *fiber.Ctx) error {
	classID, day, period, err := slotParams(c)
	if err != nil {
		return err
	}
	return boolResult(c, s.svc.ClearSlot(c.UserContext(), classID, day, period), "slot not cleared")
}

func (s *Server) removeLesson(c *fiber.Ctx) error {
	classID, day, period, err := slotParams(c)
	if err != nil {
		return err
	}
	ok := s.svc.RemoveLesson(c.UserContext(), classID, day, period, c.Params("subject"))
	return boolResult(c, ok, "lesson not found")
}

func (s *Server) removeTeacher(c *fiber.Ctx) error {
	classID, day, period, err := slotParams(c)
	if err != nil {
		return err
	}
	ok := s.svc.RemoveTeacherFromLesson(c.UserContext(), classID, day, period, c.Params("subject"), c.Params("teacher"))
	return boolResult(c, ok, "teacher not on lesson")
}

func (s *Server) slotKind(c *fiber.Ctx) error {
	classID, day, period, err := slotParams(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"teamTeaching":  s.svc.IsTTSlot(classID, day, period),
		"electiveGroup": s.svc.IsElectiveSlot(classID, day, period),
		"linked":        s.svc.LinkedLessons(classID, day, period),
	})
}

func (s *Server) moveLesson(c *fiber.Ctx) error {
	var body moveLessonBody
	if err := parseBody(c, &body); err != nil {
		return err
	}
	ok := s.svc.MoveSingleLesson(c.UserContext(), body.ClassID, body.FromDay, body.FromPeriod,
		body.SubjectID, body.TeacherIDs, body.ToDay, body.ToPeriod)
	return boolResult(c, ok, "lesson not moved")
}

func (s *Server) placedHours(c *fiber.Ctx) error {
	hours := s.svc.CountPlacedHours(c.Query("teacherId"), c.Query("subjectId"), c.Query("classId"))
	return c.JSON(fiber.Map{"hours": hours})
}

func (s *Server) propose(c *fiber.Ctx) error {
	var body proposalBody
	if err := parseBody(c, &body); err != nil {
		return err
	}
	return c.JSON(s.svc.ProposePlacement(body.ClassID, body.Day, body.Period, body.SubjectID, body.TeacherIDs, body.RoomIDs))
}

func (s *Server) commit(c *fiber.Ctx) error {
	var body commitBody
	if err := parseBody(c, &body); err != nil {
		return err
	}
	switch body.Mode {
	case "":
		body.Mode = body.Proposal.Mode
	case core.PlacementReplace, core.PlacementAppend:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown placement mode "+string(body.Mode))
	}
	return boolResult(c, s.svc.CommitPlacement(c.UserContext(), body.Proposal, body.Mode), "placement not committed")
}

func (s *Server) checkTT(c *fiber.Ctx) error {
	day, err := queryInt(c, "day")
	if err != nil {
		return err
	}
	period, err := queryInt(c, "period")
	if err != nil {
		return err
	}
	return c.JSON(s.svc.CheckTTConflict(c.Query("classId"), day, period, c.Query("teacherId"), c.Query("subjectId")))
}
