package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/models"
)

const (
	// DateTimeLayout is the local wall-clock timestamp format of documents.
	DateTimeLayout = "2006-01-02T15:04:05"
	DateLayout     = "2006-01-02"

	patientProfile   = "http://fhir.de/StructureDefinition/patient-de-basis"
	vitalsProfile    = "http://hl7.org/fhir/StructureDefinition/vitalsigns"
	categorySystem   = "http://hl7.org/fhir/observation-category"
	loincSystem      = "http://loinc.org"
	unitsSystem      = "http://unitsofmeasure.org"
	resourceMessage  = "Message"
	observationFinal = "final"
)

// Observation discriminators.
const (
	obsBloodPressure   = "blood-pressure"
	obsHeartRate       = "heart-rate"
	obsTemperature     = "body-temperature"
	obsGlucose         = "glucose"
	obsWeight          = "body-weight"
	obsResponsiveness  = "responsiveness"
	obsPain            = "pain"
	obsLastDefecation  = "last-defecation"
	obsMisc            = "misc"
	mediaTypePhoto     = "photo"
	documentPDFContent = "application/pdf"
)

var statusNames = map[models.Status]string{
	models.StatusDraft:    "preparation",
	models.StatusSent:     "sent",
	models.StatusRead:     "read",
	models.StatusResent:   "resent",
	models.StatusReread:   "reread",
	models.StatusResolved: "resolved",
	// per-party archival is carried by archivedFor
	models.StatusArchived: "resolved",
}

// doseTimes are the timing codes of dosing sequences 1 to 4.
var doseTimes = [4]string{"mo", "mi", "ab", "na"}

// Options control encoding.
type Options struct {
	// Draft forces the serialized status to "preparation".
	Draft bool
}

// Encode serializes m into a message document.
func Encode(m *models.Message, opts Options) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("encode: nil message")
	}

	status := statusNames[m.Status]
	if opts.Draft {
		status = statusNames[models.StatusDraft]
	}

	doc := document{
		ResourceType: resourceMessage,
		ID:           m.ID.String(),
		Status:       status,
		Priority:     int(m.Priority),
		Title:        m.Title,
		Note:         m.Note,
		AuthoredOn:   formatTime(m.AuthoredOn, DateTimeLayout),
		Subject:      reference{Reference: m.Patient.Name},
		Requester: requester{
			Agent:      reference{Reference: m.Sender + "/" + m.Initials, Display: m.SenderName},
			OnBehalfOf: reference{Reference: m.Recipient, Display: m.RecipientName},
		},
		ArchivedFor: make([]archiveEntry, 0, len(m.ArchivedFor)),
		Payload: payload{
			Patient:            encodePatient(m),
			Observations:       encodeObservations(m),
			MedicationRequests: encodeMedications(m),
		},
	}
	for _, r := range m.ArchivedFor {
		doc.ArchivedFor = append(doc.ArchivedFor, archiveEntry{User: r.Party, Date: formatTime(r.At, DateTimeLayout)})
	}
	for _, a := range m.Attachments {
		switch a.Kind {
		case models.KindDocument:
			doc.Payload.DocumentReferences = append(doc.Payload.DocumentReferences, documentReference{
				ResourceType: "DocumentReference",
				ContentType:  documentPDFContent,
				Content:      a.Name,
				Author:       a.AttachedBy,
			})
		default:
			doc.Payload.Media = append(doc.Payload.Media, media{
				ResourceType: "Media",
				Type:         mediaTypePhoto,
				Subject:      m.Patient.Name,
				Content:      a.Name,
				Operator:     a.AttachedBy,
			})
		}
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.ID, err)
	}
	return data, nil
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func encodePatient(m *models.Message) patient {
	return patient{
		ResourceType:         "Patient",
		Meta:                 meta{Profile: patientProfile},
		Name:                 humanName{Text: m.Patient.Name},
		Gender:               m.Patient.Gender.String(),
		BirthDate:            formatTime(m.Patient.BirthDate, DateLayout),
		GeneralPractitioner:  []reference{{Reference: m.Recipient}},
		ManagingOrganization: reference{Reference: m.Sender},
	}
}

func vitalSign(id, loinc, display string, m *models.Message) observation {
	return observation{
		ResourceType: "Observation",
		ID:           id,
		Meta:         &meta{Profile: vitalsProfile},
		Status:       observationFinal,
		Category: &codeableConcept{
			Coding: []coding{{System: categorySystem, Code: "vital-signs", Display: "Vital Signs"}},
			Text:   "Vital Signs",
		},
		Code: &codeableConcept{
			Coding: []coding{{System: loincSystem, Code: loinc, Display: display}},
			Text:   display,
		},
		Subject: reference{Reference: m.Patient.Name},
	}
}

func finding(id string, m *models.Message) observation {
	return observation{
		ResourceType: "Observation",
		ID:           id,
		Status:       observationFinal,
		Subject:      reference{Reference: m.Patient.Name},
	}
}

func encodeObservations(m *models.Message) []observation {
	var out []observation
	v := m.Vitals

	if bp := v.BloodPressure; bp.Present {
		o := vitalSign(obsBloodPressure, "85354-9", "Blood pressure panel", m)
		o.EffectiveDateTime = formatTime(bp.TakenAt, DateTimeLayout)
		o.Component = []component{
			{
				Code:          codeableConcept{Coding: []coding{{System: loincSystem, Code: "8480-6", Display: "Systolic blood pressure"}}},
				ValueQuantity: quantity{Value: bp.Systolic, Unit: "mmHg", System: unitsSystem, Code: "mm[Hg]"},
			},
			{
				Code:          codeableConcept{Coding: []coding{{System: loincSystem, Code: "8462-4", Display: "Diastolic blood pressure"}}},
				ValueQuantity: quantity{Value: bp.Diastolic, Unit: "mmHg", System: unitsSystem, Code: "mm[Hg]"},
			},
		}
		out = append(out, o)
	}
	if v.Pulse.Present {
		o := vitalSign(obsHeartRate, "8867-4", "Heart rate", m)
		o.EffectiveDateTime = formatTime(v.Pulse.TakenAt, DateTimeLayout)
		o.ValueQuantity = &quantity{Value: v.Pulse.Value, Unit: "beats/minute", System: unitsSystem, Code: "/min"}
		out = append(out, o)
	}
	if measured(v.Temperature) {
		o := vitalSign(obsTemperature, "8310-5", "Body temperature", m)
		o.EffectiveDateTime = formatTime(v.Temperature.TakenAt, DateTimeLayout)
		o.ValueQuantity = &quantity{Value: v.Temperature.Value, Unit: "C", System: unitsSystem, Code: "Cel"}
		out = append(out, o)
	}
	if measured(v.Glucose) {
		o := vitalSign(obsGlucose, "15074-8", "Glucose", m)
		o.EffectiveDateTime = formatTime(v.Glucose.TakenAt, DateTimeLayout)
		o.ValueQuantity = &quantity{Value: v.Glucose.Value, Unit: "mg/dl", System: unitsSystem, Code: "mg/dl"}
		out = append(out, o)
	}
	if measured(v.Weight) {
		o := vitalSign(obsWeight, "29463-7", "Body Weight", m)
		o.EffectiveDateTime = formatTime(v.Weight.TakenAt, DateTimeLayout)
		o.ValueQuantity = &quantity{Value: v.Weight.Value, Unit: "kg", System: unitsSystem, Code: "kg"}
		out = append(out, o)
	}

	obs := m.Observations
	if obs.Responsiveness != "" {
		o := finding(obsResponsiveness, m)
		o.ValueQuantity = &quantity{Value: obs.Responsiveness}
		out = append(out, o)
	}
	if obs.Pain != "" {
		o := finding(obsPain, m)
		o.Code = &codeableConcept{
			Coding: []coding{{System: loincSystem, Code: "28319-2", Display: "Pain status"}},
			Text:   "Pain status",
		}
		o.ValueQuantity = &quantity{Value: obs.Pain}
		out = append(out, o)
	}
	if !obs.LastDefecation.IsZero() {
		o := finding(obsLastDefecation, m)
		o.EffectiveDateTime = formatTime(obs.LastDefecation, DateTimeLayout)
		out = append(out, o)
	}
	if obs.Misc != "" {
		o := finding(obsMisc, m)
		o.ValueQuantity = &quantity{Value: obs.Misc}
		out = append(out, o)
	}
	return out
}

func encodeMedications(m *models.Message) []medicationRequest {
	out := make([]medicationRequest, 0, len(m.Medications))
	for _, med := range m.Medications {
		r := medicationRequest{
			ResourceType: "MedicationRequest",
			Status:       "active",
			Intent:       "order",
			Subject:      reference{Reference: m.Patient.Name},
			AuthoredOn:   formatTime(m.AuthoredOn, DateTimeLayout),
			Medication: medication{
				Ingredient:   ingredient{ItemCodeableConcept: med.Ingredient, Amount: med.Strength},
				Manufacturer: med.Brand,
				Form:         med.Form,
			},
			DosageInstruction:  make([]dosage, 0, len(doseTimes)),
			Unit:               med.Unit,
			Note:               med.Note,
			PatientInstruction: med.PatientInstruction,
		}
		for i, qty := range med.Doses() {
			r.DosageInstruction = append(r.DosageInstruction, dosage{
				Sequence:     i + 1,
				Timing:       timing{Repeat: repeat{When: doseTimes[i]}},
				DoseQuantity: doseValue(qty),
			})
		}
		out = append(out, r)
	}
	return out
}

// doseValue writes a quantity as a JSON number when that survives a round
// trip unchanged, as text otherwise. Empty quantities are omitted.
func doseValue(qty string) any {
	if qty == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(qty, 64); err == nil && finite(f) && formatDose(f) == qty {
		return f
	}
	return qty
}

func formatDose(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// finite reports whether f can be written as a JSON number.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func measured(v models.Vital[float64]) bool {
	return v.Present && finite(v.Value)
}
