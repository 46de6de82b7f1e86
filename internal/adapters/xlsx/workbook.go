// Package xlsx renders the timetable as an Excel workbook with one grid per
// class on the Classes sheet and one grid per teacher on the Teachers sheet.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

const (
	// ClassSheet holds the per-class grids.
	ClassSheet = "Classes"
	// TeacherSheet holds the per-teacher grids.
	TeacherSheet = "Teachers"
)

// DayLabels are the column headers for Monday to Friday.
var DayLabels = [domain.Days]string{"Mon", "Tue", "Wed", "Thu", "Fri"}

// Build renders view into a new workbook. The caller closes the file.
func Build(view domain.ScheduleView) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ClassSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(TeacherSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w := gridWriter{f: f, header: header, periods: view.Periods()}

	row := 1
	for _, class := range view.Classes() {
		cells := func(day, period int) string {
			return classCell(view, view.Slot(class.ID, day, period))
		}
		if row, err = w.grid(ClassSheet, row, class.Name, cells); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	row = 1
	classIDs := view.ScheduledClassIDs()
	meetings := view.Meetings()
	for _, t := range view.Teachers() {
		if t.Separator {
			continue
		}
		teacherID := t.ID
		cells := func(day, period int) string {
			return teacherCell(view, classIDs, meetings, teacherID, day, period)
		}
		if row, err = w.grid(TeacherSheet, row, t.Name, cells); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	for _, sheet := range []string{ClassSheet, TeacherSheet} {
		if err := f.SetColWidth(sheet, "B", "F", 22); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write renders view and streams the workbook to out.
func Write(out io.Writer, view domain.ScheduleView) error {
	f, err := Build(view)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type gridWriter struct {
	f       *excelize.File
	header  int
	periods int
}

// grid writes a titled day x period block at row and returns the first row
// after it, leaving one blank row as a separator.
func (w gridWriter) grid(sheet string, row int, title string, cell func(day, period int) string) (int, error) {
	if err := w.set(sheet, 1, row, title); err != nil {
		return 0, err
	}
	for day, label := range DayLabels {
		if err := w.set(sheet, day+2, row, label); err != nil {
			return 0, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(domain.Days+1, row)
	first, _ := excelize.CoordinatesToCellName(1, row)
	if err := w.f.SetCellStyle(sheet, first, last, w.header); err != nil {
		return 0, err
	}
	for period := 0; period < w.periods; period++ {
		r := row + 1 + period
		if err := w.set(sheet, 1, r, period+1); err != nil {
			return 0, err
		}
		for day := 0; day < domain.Days; day++ {
			if text := cell(day, period); text != "" {
				if err := w.set(sheet, day+2, r, text); err != nil {
					return 0, err
				}
			}
		}
	}
	return row + w.periods + 2, nil
}

func (w gridWriter) set(sheet string, col, row int, value any) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.f.SetCellValue(sheet, name, value)
}

func subjectLabel(view domain.ScheduleView, id string) string {
	s, ok := view.FindSubject(id)
	if !ok {
		return id
	}
	if s.ShortName != "" {
		return s.ShortName
	}
	return s.Name
}

func teacherNames(view domain.ScheduleView, ids []string) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := view.FindTeacher(id); ok {
			names = append(names, t.Name)
		} else {
			names = append(names, id)
		}
	}
	return strings.Join(names, ", ")
}

func classCell(view domain.ScheduleView, lessons []domain.Lesson) string {
	parts := make([]string, 0, len(lessons))
	for _, l := range lessons {
		parts = append(parts, fmt.Sprintf("%s (%s)", subjectLabel(view, l.SubjectID), teacherNames(view, l.TeacherIDs)))
	}
	return strings.Join(parts, " / ")
}

func teacherCell(view domain.ScheduleView, classIDs []string, meetings []domain.Meeting, teacherID string, day, period int) string {
	var parts []string
	for _, classID := range classIDs {
		for _, l := range view.Slot(classID, day, period) {
			for _, id := range l.TeacherIDs {
				if id != teacherID {
					continue
				}
				label := subjectLabel(view, l.SubjectID)
				if classID != domain.NonClassDutyID {
					label += " " + classID
				}
				parts = append(parts, label)
			}
		}
	}
	key := domain.SlotKey{Day: day, Period: period}
	for _, m := range meetings {
		if !m.HasTeacher(teacherID) {
			continue
		}
		for _, slot := range m.Schedule {
			if slot.Key() == key {
				parts = append(parts, "["+m.Name+"]")
				break
			}
		}
	}
	return strings.Join(parts, " / ")
}
