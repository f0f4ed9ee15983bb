package scoring

const (
	RoleSale   = "Sale"
	RoleKTV    = "KTV"
	RoleLeader = "Leader"
	RoleNewbie = "Newbie"

	EmployeeTypeAll = "All"

	AreaHCM = "HCM"
	AreaHN  = "HN"

	// Placeholders recognised in condition and value expressions.
	PlaceholderEmployeeID = ":employee_id"
	PlaceholderApplyDate  = ":apply_date"

	// CELPrefix marks an expression written in the CEL dialect instead of SQL.
	CELPrefix = "cel:"

	KindCondition = "condition"
	KindValue     = "value"

	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

var Roles = []string{RoleSale, RoleKTV, RoleLeader, RoleNewbie}

var Areas = []string{AreaHCM, AreaHN}

var EmployeeTypes = []string{RoleSale, RoleKTV, RoleLeader, RoleNewbie, EmployeeTypeAll}
