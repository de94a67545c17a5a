package models

// StaffRole is one of the closed set of staff roles. The strings are exact
// and are used verbatim in the hierarchy table, assignment keys, and the
// scoring parameter selectors.
type StaffRole string

const (
	RoleTeachers              StaffRole = "TEACHERS"
	RoleAssistantTeachers     StaffRole = "ASSISTANT TEACHERS"
	RoleHeadOfEarlyYears      StaffRole = "HEAD OF EARLY YEARS"
	RoleHeadOfPrimary         StaffRole = "HEAD OF PRIMARY"
	RoleHeadOfSecondary       StaffRole = "HEAD OF SECONDARY"
	RoleCurriculumCoordinator StaffRole = "CURRICULUM COORDINATOR"
	RoleSchoolManager         StaffRole = "SCHOOL MANAGER"
	RoleDirector              StaffRole = "DIRECTOR"
	RoleSecretary             StaffRole = "SECRETARY"
	RoleAccountant            StaffRole = "ACCOUNTANT"
	RoleLibrarian             StaffRole = "LIBRARIAN"
	RoleNurse                 StaffRole = "NURSE"
	RoleDriver                StaffRole = "DRIVER"
	RoleCleaner               StaffRole = "CLEANER"
	RoleCook                  StaffRole = "COOK"
	RoleSecurityGuard         StaffRole = "SECURITY GUARD"
)

// JobCategory classifies every staff role into exactly one category. The
// category decides which scoring components apply and which parameter list
// is used for observations and evaluations.
type JobCategory string

const (
	CategoryTeaching               JobCategory = "TEACHING"
	CategoryNonTeaching            JobCategory = "NON_TEACHING"
	CategoryFirstlineLeadership    JobCategory = "FIRSTLINE_LEADERSHIP"
	CategoryIntermediateLeadership JobCategory = "INTERMEDIATE_LEADERSHIP"
	CategorySeniorLeadership       JobCategory = "SENIOR_LEADERSHIP"
)

// roleCategories is the fixed role -> category classification.
var roleCategories = map[StaffRole]JobCategory{
	RoleTeachers:              CategoryTeaching,
	RoleAssistantTeachers:     CategoryTeaching,
	RoleHeadOfEarlyYears:      CategoryFirstlineLeadership,
	RoleHeadOfPrimary:         CategoryFirstlineLeadership,
	RoleHeadOfSecondary:       CategoryFirstlineLeadership,
	RoleCurriculumCoordinator: CategoryIntermediateLeadership,
	RoleSchoolManager:         CategorySeniorLeadership,
	RoleDirector:              CategorySeniorLeadership,
	RoleSecretary:             CategoryNonTeaching,
	RoleAccountant:            CategoryNonTeaching,
	RoleLibrarian:             CategoryNonTeaching,
	RoleNurse:                 CategoryNonTeaching,
	RoleDriver:                CategoryNonTeaching,
	RoleCleaner:               CategoryNonTeaching,
	RoleCook:                  CategoryNonTeaching,
	RoleSecurityGuard:         CategoryNonTeaching,
}

// appraiserHierarchy maps a staff role to the set of roles eligible to
// appraise it. Roles absent from the table (DIRECTOR) have an empty
// eligible set; that is a configuration gap, not an error.
var appraiserHierarchy = map[StaffRole][]StaffRole{
	RoleTeachers:              {RoleHeadOfEarlyYears, RoleHeadOfPrimary, RoleHeadOfSecondary, RoleCurriculumCoordinator},
	RoleAssistantTeachers:     {RoleHeadOfEarlyYears, RoleHeadOfPrimary, RoleHeadOfSecondary, RoleCurriculumCoordinator},
	RoleHeadOfEarlyYears:      {RoleCurriculumCoordinator, RoleSchoolManager},
	RoleHeadOfPrimary:         {RoleCurriculumCoordinator, RoleSchoolManager},
	RoleHeadOfSecondary:       {RoleCurriculumCoordinator, RoleSchoolManager},
	RoleCurriculumCoordinator: {RoleSchoolManager, RoleDirector},
	RoleSchoolManager:         {RoleDirector},
	RoleSecretary:             {RoleSchoolManager},
	RoleAccountant:            {RoleSchoolManager},
	RoleLibrarian:             {RoleSchoolManager},
	RoleNurse:                 {RoleSchoolManager},
	RoleDriver:                {RoleSchoolManager, RoleSecretary},
	RoleCleaner:               {RoleSchoolManager, RoleSecretary},
	RoleCook:                  {RoleSchoolManager, RoleSecretary},
	RoleSecurityGuard:         {RoleSchoolManager, RoleSecretary},
}

// AllStaffRoles returns the closed set of valid staff roles.
func AllStaffRoles() []StaffRole {
	return []StaffRole{
		RoleTeachers, RoleAssistantTeachers,
		RoleHeadOfEarlyYears, RoleHeadOfPrimary, RoleHeadOfSecondary,
		RoleCurriculumCoordinator, RoleSchoolManager, RoleDirector,
		RoleSecretary, RoleAccountant, RoleLibrarian, RoleNurse,
		RoleDriver, RoleCleaner, RoleCook, RoleSecurityGuard,
	}
}

// IsValidStaffRole reports whether the string names a known staff role.
func IsValidStaffRole(role string) bool {
	_, ok := roleCategories[StaffRole(role)]
	return ok
}

// CategoryOf returns the job category of a role. Unknown roles map to
// NON_TEACHING so that a misconfigured account still scores conservatively.
func CategoryOf(role StaffRole) JobCategory {
	if cat, ok := roleCategories[role]; ok {
		return cat
	}
	return CategoryNonTeaching
}

// EligibleAppraiserRoles returns the roles allowed to appraise the given
// role. The returned slice may be empty.
func EligibleAppraiserRoles(role StaffRole) []StaffRole {
	return appraiserHierarchy[role]
}

// EligibleAppraisers filters users down to those whose primary role is in
// the hierarchy set for the appraisee's role, excluding the appraisee.
func EligibleAppraisers(role StaffRole, appraiseeID uint, users []User) []User {
	allowed := make(map[StaffRole]bool)
	for _, r := range appraiserHierarchy[role] {
		allowed[r] = true
	}

	var eligible []User
	for _, u := range users {
		if u.ID == appraiseeID {
			continue
		}
		if allowed[u.Role] {
			eligible = append(eligible, u)
		}
	}
	return eligible
}

// HasTargets reports whether the category's appraisals include a targets
// component. Non-teaching staff are evaluated without targets; senior
// leadership uses only the evaluation component.
func (c JobCategory) HasTargets() bool {
	switch c {
	case CategoryTeaching, CategoryFirstlineLeadership, CategoryIntermediateLeadership:
		return true
	}
	return false
}

// HasObservations reports whether the category's appraisals include
// observation sessions.
func (c JobCategory) HasObservations() bool {
	return c != CategorySeniorLeadership
}

// UsesWorkObservation reports whether observations for this category review
// task execution instead of lesson delivery.
func (c JobCategory) UsesWorkObservation() bool {
	return c == CategoryNonTeaching
}

// LessonObservationParameters are the rated parameters of an in-class
// lesson observation, keyed 1..n in the observation ratings map.
var LessonObservationParameters = []string{
	"Lesson planning and preparation",
	"Subject knowledge",
	"Clarity of learning objectives",
	"Teaching methods and delivery",
	"Learner engagement and participation",
	"Classroom management",
	"Use of teaching aids and resources",
	"Assessment of learning",
	"Time management",
}

// WorkObservationParameters are the rated parameters of a non-teaching work
// observation.
var WorkObservationParameters = []string{
	"Quality of work produced",
	"Knowledge of assigned duties",
	"Organisation of the work area",
	"Use and care of tools and equipment",
	"Adherence to procedures and safety",
	"Time keeping",
	"Cooperation with colleagues",
	"Initiative",
}

// TeachingEvaluationParameters apply to teaching staff and firstline /
// intermediate leadership.
var TeachingEvaluationParameters = []string{
	"Professionalism and conduct",
	"Record keeping and documentation",
	"Communication with learners and parents",
	"Teamwork and collegiality",
	"Punctuality and attendance",
	"Contribution to co-curricular activities",
}

// NonTeachingEvaluationParameters apply to non-teaching staff.
var NonTeachingEvaluationParameters = []string{
	"Professionalism and conduct",
	"Reliability",
	"Communication",
	"Teamwork",
	"Punctuality and attendance",
	"Care of school property",
	"Response to instructions",
	"Personal presentation",
}

// SeniorLeadershipEvaluationParameters apply to senior leadership, whose
// appraisal consists of the evaluation component alone.
var SeniorLeadershipEvaluationParameters = []string{
	"Strategic planning and direction",
	"Staff management and development",
	"Financial oversight",
	"Policy implementation",
	"Stakeholder engagement",
	"Decision making",
	"Accountability and reporting",
	"Institutional culture and discipline",
	"Innovation and improvement",
	"Crisis and risk management",
}

// ObservationParameters returns the observation parameter list for a
// category, or nil when observations do not apply.
func (c JobCategory) ObservationParameters() []string {
	if !c.HasObservations() {
		return nil
	}
	if c.UsesWorkObservation() {
		return WorkObservationParameters
	}
	return LessonObservationParameters
}

// EvaluationParameters returns the evaluation parameter list for a category.
func (c JobCategory) EvaluationParameters() []string {
	switch c {
	case CategoryNonTeaching:
		return NonTeachingEvaluationParameters
	case CategorySeniorLeadership:
		return SeniorLeadershipEvaluationParameters
	default:
		return TeachingEvaluationParameters
	}
}
