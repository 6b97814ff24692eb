package exports

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const (
	sheetExceptions = "Exceptions"
	sheetJobs       = "Jobs"
	timestampLayout = "2006-01-02 15:04:05"
)

var (
	exceptionHeaders = []string{"Logged at", "Job", "Address", "Job status", "Stage", "Reason", "Logged by", "Job ID"}
	jobHeaders       = []string{"Job", "Address", "Lead technician", "Exceptions", "Stages", "Needs review", "Job ID"}
)

// JobSummary aggregates the exceptions of one job.
type JobSummary struct {
	JobID       uuid.UUID
	JobTitle    string
	JobAddress  string
	LeadTechID  uuid.UUID
	Exceptions  int
	Stages      []string
	NeedsReview bool
}

// Summarize groups records per job. A job needs review when its count is
// strictly greater than threshold. Jobs are ordered by exception count,
// highest first.
func Summarize(records []ExceptionRecord, threshold int) []JobSummary {
	byJob := make(map[uuid.UUID]*JobSummary)
	order := make([]uuid.UUID, 0)
	for _, r := range records {
		s, ok := byJob[r.JobID]
		if !ok {
			s = &JobSummary{JobID: r.JobID, JobTitle: r.JobTitle, JobAddress: r.JobAddress, LeadTechID: r.LeadTechID}
			byJob[r.JobID] = s
			order = append(order, r.JobID)
		}
		s.Exceptions++
		s.Stages = append(s.Stages, r.Stage)
	}

	out := make([]JobSummary, 0, len(order))
	for _, id := range order {
		s := byJob[id]
		s.NeedsReview = s.Exceptions > threshold
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Exceptions > out[j].Exceptions })
	return out
}

// BuildExceptionWorkbook renders the exception audit as an xlsx workbook
// with one row per skipped gate and one row per job.
func BuildExceptionWorkbook(records []ExceptionRecord, threshold int, from, to, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetExceptions); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(sheetJobs); err != nil {
		_ = f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E78"}, Pattern: 1},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	flagStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F8CBAD"}, Pattern: 1},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	title := fmt.Sprintf("Gate exceptions %s to %s (generated %s)", from.Format(dateLayout), to.Format(dateLayout), generatedAt.UTC().Format(timestampLayout))
	if err := writeExceptions(f, records, title, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeJobs(f, Summarize(records, threshold), threshold, headerStyle, flagStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeExceptions(f *excelize.File, records []ExceptionRecord, title string, headerStyle int) error {
	if err := f.SetCellValue(sheetExceptions, "A1", title); err != nil {
		return err
	}
	if err := writeHeader(f, sheetExceptions, 3, exceptionHeaders, headerStyle); err != nil {
		return err
	}

	for i, r := range records {
		loggedAt, loggedBy := "", ""
		if r.LoggedAt != nil {
			loggedAt = r.LoggedAt.UTC().Format(timestampLayout)
		}
		if r.LoggedBy != nil {
			loggedBy = r.LoggedBy.String()
		}
		values := []any{loggedAt, r.JobTitle, r.JobAddress, r.JobStatus, r.Stage, r.Reason, loggedBy, r.JobID.String()}
		if err := writeRow(f, sheetExceptions, i+4, values); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetExceptions, "A", "H", 22)
}

func writeJobs(f *excelize.File, jobs []JobSummary, threshold, headerStyle, flagStyle int) error {
	if err := f.SetCellValue(sheetJobs, "A1", fmt.Sprintf("Review threshold: more than %d exceptions", threshold)); err != nil {
		return err
	}
	if err := writeHeader(f, sheetJobs, 3, jobHeaders, headerStyle); err != nil {
		return err
	}

	for i, j := range jobs {
		row := i + 4
		review := "no"
		if j.NeedsReview {
			review = "yes"
		}
		values := []any{j.JobTitle, j.JobAddress, j.LeadTechID.String(), j.Exceptions, strings.Join(j.Stages, ", "), review, j.JobID.String()}
		if err := writeRow(f, sheetJobs, row, values); err != nil {
			return err
		}
		if j.NeedsReview {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellStyle(sheetJobs, first, last, flagStyle); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(sheetJobs, "A", "G", 22)
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string, style int) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := writeRow(f, sheet, row, values); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(headers), row)
	return f.SetCellStyle(sheet, first, last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
