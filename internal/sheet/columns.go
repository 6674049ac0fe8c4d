package sheet

// Stock workbook columns.
const (
	ColItemNo        = "Item No."
	ColItemName      = "Item Name"
	ColMachineSpec   = "Production Line (Stage1-Stage2-Stage3)"
	ColMPIStock      = "MPI Stock"
	ColCustStock     = "CUST Stock"
	ColTotalStock    = "Total Stock"
	ColMPIStockDays  = "MPI Stock days"
	ColCustStockDays = "CUST Stock Days"
	ColMonthlyDemand = "Min Stock / M.D."

	ColPlanQtyInput      = "Plan Qty Input"
	ColPlanMonthsInput   = "Plan Months Input"
	ColTargetMonthsInput = "Target Months Input"
	ColSafetyDaysInput   = "Safety Days Input"
)

// Items master columns.
const (
	ColItemsID          = "ID"
	ColItemsDescription = "Description"
)

// RequiredStockColumns must all be present in the stock workbook.
var RequiredStockColumns = []string{
	ColItemNo,
	ColItemName,
	ColMachineSpec,
	ColMPIStock,
	ColCustStock,
	ColTotalStock,
	ColMPIStockDays,
	ColCustStockDays,
	ColMonthlyDemand,
}

// Derived item columns, as written to the Master sheet and read back when
// re-planning from an exported workbook.
const (
	ColDescription         = "Description"
	ColMonthlyDemandOut    = "Monthly Demand"
	ColDailyDemand         = "Daily Demand"
	ColMPIStockQty         = "MPI Stock Qty"
	ColCustStockQty        = "CUST Stock Qty"
	ColStock               = "Stock"
	ColTotalCoverageDays   = "Total Coverage Days"
	ColTotalCoverageMonth  = "Total Coverage Month"
	ColProductAlert        = "Product Alert"
	ColCustAlert           = "CUST Alert"
	ColMonthsCoveredByPlan = "Months Covered by Plan Qty"
	ColQtyNeededForPlan    = "Qty Needed for Plan Months"
	ColStartDate           = "Start Date"
	ColEndDate             = "End Date"
)

// Plan columns.
const (
	ColProductionRank     = "Production Rank"
	ColMachine            = "Machine"
	ColDemandClass        = "Demand Class"
	ColTargetMonthsFinal  = "Target Months (Final)"
	ColSafetyDaysFinal    = "Safety Days (Final)"
	ColTargetCoverageDays = "Target Coverage Days"
	ColPlanCoverageDays   = "Plan Coverage Days"
	ColGapDays            = "Gap Days"
	ColProposedQty        = "Proposed Production Qty"
	ColFinalQty           = "Final Qty"
)

// MasterColumns is the Master sheet layout.
var MasterColumns = []string{
	ColItemNo,
	ColItemName,
	ColDescription,
	ColMachineSpec,
	ColMonthlyDemandOut,
	ColDailyDemand,
	ColMPIStockQty,
	ColCustStockQty,
	ColStock,
	ColMPIStockDays,
	ColCustStockDays,
	ColTotalCoverageDays,
	ColTotalCoverageMonth,
	ColProductAlert,
	ColCustAlert,
	ColPlanQtyInput,
	ColMonthsCoveredByPlan,
	ColPlanMonthsInput,
	ColQtyNeededForPlan,
	ColStartDate,
	ColEndDate,
	ColTargetMonthsInput,
	ColSafetyDaysInput,
}

// PlanViewColumns is the machine plan layout shown to planners.
var PlanViewColumns = []string{
	ColProductionRank,
	ColItemNo,
	ColItemName,
	ColMachine,
	ColProductAlert,
	ColMonthlyDemandOut,
	ColDailyDemand,
	ColTotalCoverageDays,
	ColDemandClass,
	ColTargetMonthsFinal,
	ColSafetyDaysFinal,
	ColPlanCoverageDays,
	ColGapDays,
	ColProposedQty,
}
