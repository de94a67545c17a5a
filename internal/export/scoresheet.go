package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/scoring"
)

const sheetName = "Scoresheet"

// Scoresheet renders one appraisal as an xlsx workbook: the header block,
// the targets table, observation and evaluation summaries, and the final
// score breakdown. The document and the recomputed score are the only
// inputs; nothing is read from the cached overall score.
func Scoresheet(appraisal *models.AppraisalWithNames, category models.JobCategory) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	title, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})

	data := &appraisal.Data
	result := scoring.Total(data, category)

	row := 1
	setCell := func(col int, value interface{}) {
		cell := fmt.Sprintf("%s%d", colName(col), row)
		_ = f.SetCellValue(sheetName, cell, value)
	}
	boldRow := func(cols int) {
		_ = f.SetCellStyle(sheetName,
			fmt.Sprintf("A%d", row),
			fmt.Sprintf("%s%d", colName(cols), row),
			bold)
	}

	setCell(1, "Staff Appraisal Scoresheet")
	_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), title)
	row += 2

	role := ""
	if appraisal.Role != nil {
		role = string(*appraisal.Role)
	}

	headerFields := [][2]string{
		{"Appraisee", appraisal.AppraiseeName},
		{"Appraiser", appraisal.AppraiserName},
		{"Role", role},
		{"Term", appraisal.Term},
		{"Year", appraisal.Year},
		{"Status", string(appraisal.Status)},
	}
	for _, field := range headerFields {
		if field[1] == "" {
			continue
		}
		setCell(1, field[0])
		setCell(2, field[1])
		boldRow(1)
		row++
	}
	row++

	if category.HasTargets() {
		setCell(1, "Targets")
		boldRow(1)
		row++

		headers := []string{"#", "Area", "Description", "Target", "Actual", "Notes"}
		for c, h := range headers {
			setCell(c+1, h)
		}
		boldRow(len(headers))
		row++

		for i, target := range data.Targets {
			setCell(1, i+1)
			setCell(2, target.Area)
			setCell(3, target.Description)
			setCell(4, target.Target)
			setCell(5, target.Actual)
			setCell(6, target.ActualDescription)
			row++
		}

		setCell(1, "Target average")
		setCell(2, fmt.Sprintf("%.1f%%", result.Targets.Average))
		setCell(3, result.Targets.Rating)
		setCell(4, fmt.Sprintf("%d / %d marks", result.Targets.Marks, scoring.MaxTargetMarks))
		boldRow(1)
		row += 2
	}

	if category.HasObservations() {
		setCell(1, "Observations")
		boldRow(1)
		row++

		params := category.ObservationParameters()
		setCell(1, "#")
		setCell(2, "Parameter")
		setCell(3, "Observation 1")
		setCell(4, "Observation 2")
		boldRow(4)
		row++

		for i, param := range params {
			setCell(1, i+1)
			setCell(2, param)
			if v, ok := data.Observation1.Ratings[i+1]; ok {
				setCell(3, v)
			}
			if v, ok := data.Observation2.Ratings[i+1]; ok {
				setCell(4, v)
			}
			row++
		}

		setCell(1, "Sum")
		setCell(3, data.Observation1.RatingSum())
		if data.Observation2.Started() {
			setCell(4, data.Observation2.RatingSum())
		}
		boldRow(1)
		row++

		setCell(1, "Observation score")
		setCell(2, result.ObservationScore)
		boldRow(1)
		row += 2
	}

	setCell(1, "Evaluation")
	boldRow(1)
	row++

	setCell(1, "#")
	setCell(2, "Parameter")
	setCell(3, "Rating")
	boldRow(3)
	row++

	for i, param := range category.EvaluationParameters() {
		setCell(1, i+1)
		setCell(2, param)
		if v, ok := data.Evaluation.Ratings[i+1]; ok {
			setCell(3, v)
		}
		row++
	}

	setCell(1, "Evaluation score")
	setCell(2, result.EvaluationScore)
	boldRow(1)
	row += 2

	setCell(1, "Summary")
	boldRow(1)
	row++

	summary := [][2]interface{}{
		{"Total score", result.Total},
		{"Maximum possible", result.Maximum},
		{"Percentage", fmt.Sprintf("%.1f%%", result.Percentage)},
		{"Rating band", result.Band},
	}
	for _, line := range summary {
		setCell(1, line[0])
		setCell(2, line[1])
		boldRow(1)
		row++
	}

	widths := []float64{28, 42, 16, 16, 16, 30}
	for i, w := range widths {
		col := colName(i + 1)
		_ = f.SetColWidth(sheetName, col, col, w)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

// ScoresheetFilename builds a human-readable download filename
func ScoresheetFilename(appraiseeName, term, year string) string {
	base := fmt.Sprintf("Scoresheet - %s - %s %s.xlsx", appraiseeName, term, year)
	base = strings.Join(strings.Fields(base), " ")
	return invalidFileRe.ReplaceAllString(base, "_")
}

func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}
