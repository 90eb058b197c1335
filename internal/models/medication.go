package models

// MedicationFields is the fixed number of cells in a medication table row.
const MedicationFields = 11

// Medication is one row of the medication table. Dosing quantities are
// kept as entered (e.g. "1", "0.5", "1/2").
type Medication struct {
	Ingredient         string
	Brand              string
	Strength           string
	Form               string
	Morning            string
	Midday             string
	Evening            string
	Night              string
	Unit               string
	Note               string
	PatientInstruction string
}

// MedicationFromRow builds a Medication from positional table cells.
// Missing trailing cells become empty text; extra cells are ignored.
func MedicationFromRow(row []string) Medication {
	var cells [MedicationFields]string
	copy(cells[:], row)
	return Medication{
		Ingredient:         cells[0],
		Brand:              cells[1],
		Strength:           cells[2],
		Form:               cells[3],
		Morning:            cells[4],
		Midday:             cells[5],
		Evening:            cells[6],
		Night:              cells[7],
		Unit:               cells[8],
		Note:               cells[9],
		PatientInstruction: cells[10],
	}
}

// Row returns the positional table cells.
func (m Medication) Row() [MedicationFields]string {
	return [MedicationFields]string{
		m.Ingredient, m.Brand, m.Strength, m.Form,
		m.Morning, m.Midday, m.Evening, m.Night,
		m.Unit, m.Note, m.PatientInstruction,
	}
}

// Doses returns the four dosing quantities ordered morning, midday,
// evening, night.
func (m Medication) Doses() [4]string {
	return [4]string{m.Morning, m.Midday, m.Evening, m.Night}
}

// SetDose stores quantity for the 1-based dosing sequence (1 = morning ...
// 4 = night). Out-of-range sequences are ignored and reported as false.
func (m *Medication) SetDose(sequence int, quantity string) bool {
	switch sequence {
	case 1:
		m.Morning = quantity
	case 2:
		m.Midday = quantity
	case 3:
		m.Evening = quantity
	case 4:
		m.Night = quantity
	default:
		return false
	}
	return true
}
