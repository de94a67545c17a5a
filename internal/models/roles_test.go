package models

import (
	"testing"
)

func TestEveryRoleHasACategory(t *testing.T) {
	for _, role := range AllStaffRoles() {
		if _, ok := roleCategories[role]; !ok {
			t.Errorf("Role %q has no job category", role)
		}
	}
}

func TestEligibleAppraisersFiltersByHierarchy(t *testing.T) {
	users := []User{
		{ID: 1, FullName: "Appraisee", Role: RoleTeachers},
		{ID: 2, FullName: "Head of Primary", Role: RoleHeadOfPrimary},
		{ID: 3, FullName: "Another Teacher", Role: RoleTeachers},
		{ID: 4, FullName: "Director", Role: RoleDirector},
		{ID: 5, FullName: "Coordinator", Role: RoleCurriculumCoordinator},
	}

	eligible := EligibleAppraisers(RoleTeachers, 1, users)

	ids := make(map[uint]bool)
	for _, u := range eligible {
		ids[u.ID] = true
	}
	if len(eligible) != 2 || !ids[2] || !ids[5] {
		t.Errorf("Expected users 2 and 5 to be eligible for TEACHERS, got %v", ids)
	}
}

func TestEligibleAppraisersExcludesSelf(t *testing.T) {
	users := []User{
		{ID: 1, Role: RoleHeadOfPrimary},
		{ID: 2, Role: RoleCurriculumCoordinator},
	}

	// User 1 holds an eligible role for TEACHERS but cannot appraise
	// themself.
	eligible := EligibleAppraisers(RoleTeachers, 1, users)
	for _, u := range eligible {
		if u.ID == 1 {
			t.Error("Appraisee must not appear in their own eligible list")
		}
	}
}

func TestDirectorHasEmptyEligibleSet(t *testing.T) {
	users := []User{
		{ID: 1, Role: RoleDirector},
		{ID: 2, Role: RoleSchoolManager},
	}

	eligible := EligibleAppraisers(RoleDirector, 1, users)
	if len(eligible) != 0 {
		t.Errorf("DIRECTOR is absent from the hierarchy table and should have no eligible appraisers, got %d", len(eligible))
	}
}

func TestCategoryComponentRules(t *testing.T) {
	tests := []struct {
		category     JobCategory
		targets      bool
		observations bool
	}{
		{CategoryTeaching, true, true},
		{CategoryFirstlineLeadership, true, true},
		{CategoryIntermediateLeadership, true, true},
		{CategoryNonTeaching, false, true},
		{CategorySeniorLeadership, false, false},
	}

	for _, tt := range tests {
		if got := tt.category.HasTargets(); got != tt.targets {
			t.Errorf("%s: HasTargets = %v, expected %v", tt.category, got, tt.targets)
		}
		if got := tt.category.HasObservations(); got != tt.observations {
			t.Errorf("%s: HasObservations = %v, expected %v", tt.category, got, tt.observations)
		}
	}
}

func TestObservationParameterSelection(t *testing.T) {
	if params := CategoryNonTeaching.ObservationParameters(); len(params) != len(WorkObservationParameters) {
		t.Errorf("Non-teaching staff should be observed on the work list, got %d parameters", len(params))
	}
	if params := CategoryTeaching.ObservationParameters(); len(params) != len(LessonObservationParameters) {
		t.Errorf("Teaching staff should be observed on the lesson list, got %d parameters", len(params))
	}
	if params := CategorySeniorLeadership.ObservationParameters(); params != nil {
		t.Error("Senior leadership has no observation component")
	}
}

func TestStatusOrderingHelpers(t *testing.T) {
	if !StatusEvaluationSubmitted.IsObservationSubmitted() {
		t.Error("A later status must satisfy earlier stage predicates")
	}
	if StatusTargetsSet.IsEvaluationSubmitted() {
		t.Error("An earlier status must not satisfy later stage predicates")
	}
	if !StatusCompleted.IsTargetsSet() || !StatusCompleted.IsCompleted() {
		t.Error("COMPLETED satisfies every stage predicate")
	}
	if AppraisalStatus("BOGUS").IsValid() {
		t.Error("Unknown statuses must be invalid")
	}
}

func TestAssignmentRoleKey(t *testing.T) {
	role := RoleTeachers
	withRole := AppraiserAssignment{Role: &role}
	if withRole.RoleKey() != "TEACHERS" {
		t.Errorf("Expected TEACHERS, got %s", withRole.RoleKey())
	}

	primary := AppraiserAssignment{}
	if primary.RoleKey() != "PRIMARY" {
		t.Errorf("NULL role renders as PRIMARY for display, got %s", primary.RoleKey())
	}
}
