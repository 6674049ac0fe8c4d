package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/sheet"
)

const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	"/", "-",
	`\`, "-",
	":", "-",
	"*", "-",
	"?", "",
	"[", "(",
	"]", ")",
)

// SheetName turns a machine name into a valid worksheet name: cut to 31
// characters, then characters Excel forbids are replaced.
func SheetName(machine string) string {
	r := []rune(machine)
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	name := sheetNameReplacer.Replace(string(r))
	if strings.TrimSpace(name) == "" {
		return domain.UnspecifiedMachine
	}
	return name
}

var fileNameReplacer = strings.NewReplacer("/", "_", `\`, "_", " ", "_")

// MachineFileName is the download name of a single-machine workbook.
func MachineFileName(machine string) string {
	return fmt.Sprintf("Machine_Plan_%s.xlsx", fileNameReplacer.Replace(machine))
}

// MachineSheet is one machine's rows under its sanitized sheet name.
type MachineSheet struct {
	Name    string
	Machine string
	Rows    []domain.PlanRow
}

// MachineSheets splits plan into one sheet per machine, machines sorted by
// name. Two machines that sanitize to the same name share the later sheet.
func MachineSheets(plan domain.Plan) []MachineSheet {
	machines := plan.Machines()
	sort.Strings(machines)

	byName := map[string]int{}
	var out []MachineSheet
	for _, m := range machines {
		rows := plan.ForMachine(m)
		if len(rows) == 0 {
			continue
		}
		name := SheetName(m)
		if i, ok := byName[name]; ok {
			out[i] = MachineSheet{Name: name, Machine: m, Rows: rows}
			continue
		}
		byName[name] = len(out)
		out = append(out, MachineSheet{Name: name, Machine: m, Rows: rows})
	}
	return out
}

// MachinesWorkbook writes every machine of plan to its own sheet in the
// plan view layout.
func MachinesWorkbook(plan domain.Plan) ([]byte, error) {
	return machineWorkbook(MachineSheets(plan))
}

// MachineWorkbook writes a single machine's plan. It fails when the machine
// has no rows.
func MachineWorkbook(plan domain.Plan, machine string) ([]byte, error) {
	rows := plan.ForMachine(machine)
	if len(rows) == 0 {
		return nil, fmt.Errorf("machine %q has no plan rows", machine)
	}
	return machineWorkbook([]MachineSheet{{Name: SheetName(machine), Machine: machine, Rows: rows}})
}

func machineWorkbook(sheets []MachineSheet) ([]byte, error) {
	b, err := newBook(false)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	for i, s := range sheets {
		if err := b.add(sheetSpec{
			Name:         s.Name,
			Headers:      sheet.PlanViewColumns,
			Rows:         planRows(s.Rows, sheet.PlanViewColumns),
			Table:        fmt.Sprintf("MachineTable%d", i+1),
			Palette:      StrongPalette,
			AlertColumns: []string{sheet.ColProductAlert},
			Kinds:        planKinds,
			Widths:       planWidths,
		}); err != nil {
			return nil, err
		}
	}
	return b.bytes()
}
