package models

// DashboardCounts summarises entity totals for the active academic year.
type DashboardCounts struct {
	Students        int `db:"students" json:"students"`
	Teachers        int `db:"teachers" json:"teachers"`
	Classes         int `db:"classes" json:"classes"`
	Subjects        int `db:"subjects" json:"subjects"`
	ScheduleEntries int `db:"schedule_entries" json:"schedule_entries"`
}