package export

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
)

func sampleAppraisal() *models.AppraisalWithNames {
	data := models.AppraisalData{
		Term: "Term 1",
		Year: "2026",
		Targets: []models.Target{
			{ID: 1, Area: "Syllabus coverage", Description: "Cover the full syllabus", Target: "100", Actual: "98"},
		},
		Observation1: models.Observation{
			Ratings: map[int]int{1: 4, 2: 4, 3: 3},
			Date:    "2026-02-14",
			Time:    "10:30",
		},
		Evaluation: models.Evaluation{
			Ratings: map[int]int{1: 4, 2: 3},
		},
	}
	data.Normalize()

	role := models.RoleTeachers
	a := &models.AppraisalWithNames{
		AppraiserName: "Head of Primary",
		AppraiseeName: "Jane Banda",
	}
	a.ID = 7
	a.Role = &role
	a.Term = "Term 1"
	a.Year = "2026"
	a.Status = models.StatusEvaluationSubmitted
	a.Data = data
	return a
}

func TestScoresheetProducesReadableWorkbook(t *testing.T) {
	buf, err := Scoresheet(sampleAppraisal(), models.CategoryTeaching)
	if err != nil {
		t.Fatalf("Scoresheet failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("Expected a non-empty workbook")
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("Workbook does not reopen: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("Failed to read sheet: %v", err)
	}
	if len(rows) == 0 || rows[0][0] != "Staff Appraisal Scoresheet" {
		t.Fatalf("Expected scoresheet title in A1, got %v", rows[:1])
	}

	flat := ""
	for _, r := range rows {
		for _, c := range r {
			flat += c + "|"
		}
	}
	for _, want := range []string{"Jane Banda", "Syllabus coverage", "Targets", "Observations", "Evaluation", "Rating band"} {
		if !strings.Contains(flat, want) {
			t.Errorf("Expected workbook to contain %q", want)
		}
	}
}

func TestScoresheetFilename(t *testing.T) {
	name := ScoresheetFilename("Jane / Banda", "Term 1", "2026")
	if name != "Scoresheet - Jane _ Banda - Term 1 2026.xlsx" {
		t.Errorf("Unexpected filename: %s", name)
	}
}
