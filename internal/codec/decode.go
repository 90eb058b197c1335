package codec

import (
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/ampcare/internal/common"
	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/google/uuid"
)

// legacyDateTimeLayout is accepted for archival records written by older
// clients.
const legacyDateTimeLayout = "02.01.2006 15:04:05"

var statusByName = map[string]models.Status{
	"preparation": models.StatusDraft,
	"sent":        models.StatusSent,
	"read":        models.StatusRead,
	"resent":      models.StatusResent,
	"reread":      models.StatusReread,
	"resolved":    models.StatusResolved,
}

// Decode parses a message document read from path. Decoding is permissive:
// missing or mistyped fields keep their zero value. Only data that is not a
// JSON object fails, with a *common.DecodeError.
//
// Attachment paths resolve to the assets folder that sits next to the
// document's messages folder.
func Decode(data []byte, path string) (*models.Message, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &common.DecodeError{Path: path, Err: err}
	}
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, &common.DecodeError{Path: path, Err: errNotObject}
	}
	doc := node(root)

	m := &models.Message{Path: path, Status: models.StatusDraft, Priority: models.PriorityInfo}

	if s, ok := doc.str("id"); ok {
		if id, err := uuid.Parse(s); err == nil {
			m.ID = id
		}
	}
	if s, ok := doc.str("status"); ok {
		if st, ok := statusByName[s]; ok {
			m.Status = st
		}
	}
	if n, ok := doc.num("priority"); ok {
		if p := models.Priority(n); float64(p) == n && p.Valid() {
			m.Priority = p
		}
	}
	m.Title, _ = doc.str("title")
	m.Note, _ = doc.str("note")
	m.AuthoredOn = parseTime(doc.strOr("authoredOn"), DateTimeLayout)

	req := doc.obj("requester")
	agent := req.obj("agent")
	m.Sender, m.Initials = splitAgent(agent.strOr("reference"))
	m.SenderName = agent.strOr("display")
	behalf := req.obj("onBehalfOf")
	m.Recipient = behalf.strOr("reference")
	m.RecipientName = behalf.strOr("display")

	for _, v := range doc.arr("archivedFor") {
		e := asNode(v)
		user := e.strOr("user")
		if user == "" {
			continue
		}
		date := e.strOr("date")
		at := parseTime(date, DateTimeLayout)
		if at.IsZero() {
			at = parseTime(date, legacyDateTimeLayout)
		}
		m.ArchivedFor = append(m.ArchivedFor, models.ArchiveRecord{Party: user, At: at})
	}

	pl := doc.obj("payload")
	decodePatient(m, pl.obj("patient"))
	for _, v := range pl.arr("observations") {
		decodeObservation(m, asNode(v))
	}
	for _, v := range pl.arr("medicationRequests") {
		m.Medications = append(m.Medications, decodeMedication(asNode(v)))
	}

	assets := ""
	if path != "" {
		assets = filepath.Join(filepath.Dir(filepath.Dir(path)), common.AssetsFolder)
	}
	attachment := func(name, by string, kind models.AttachmentKind) {
		if name == "" {
			return
		}
		a := models.Attachment{Name: name, AttachedBy: by, Kind: kind}
		if assets != "" {
			a.Path = filepath.Join(assets, name)
		}
		m.Attachments = append(m.Attachments, a)
	}
	for _, v := range pl.arr("media") {
		e := asNode(v)
		attachment(e.strOr("content"), e.strOr("operator"), models.KindImage)
	}
	for _, v := range pl.arr("documentReferences") {
		e := asNode(v)
		attachment(e.strOr("content"), e.strOr("author"), models.KindDocument)
	}

	m.SettleArchived()
	return m, nil
}

func decodePatient(m *models.Message, p node) {
	m.Patient.Name = p.obj("name").strOr("text")
	m.Patient.Gender = models.ParseGender(p.strOr("gender"))
	m.Patient.BirthDate = parseTime(p.strOr("birthDate"), DateLayout)
}

func decodeObservation(m *models.Message, o node) {
	at := parseTime(o.strOr("effectiveDateTime"), DateTimeLayout)
	value := o.obj("valueQuantity")

	switch o.strOr("id") {
	case obsBloodPressure:
		comps := o.arr("component")
		if len(comps) < 2 {
			return
		}
		sys, ok1 := intValue(asNode(comps[0]).obj("valueQuantity"))
		dia, ok2 := intValue(asNode(comps[1]).obj("valueQuantity"))
		if ok1 && ok2 {
			m.Vitals.BloodPressure = models.BloodPressure{Systolic: sys, Diastolic: dia, Present: true, TakenAt: at}
		}
	case obsHeartRate:
		if v, ok := intValue(value); ok {
			m.Vitals.Pulse = models.Measured(v, at)
		}
	case obsTemperature:
		if v, ok := value.num("value"); ok {
			m.Vitals.Temperature = models.Measured(v, at)
		}
	case obsGlucose:
		if v, ok := value.num("value"); ok {
			m.Vitals.Glucose = models.Measured(v, at)
		}
	case obsWeight:
		if v, ok := value.num("value"); ok {
			m.Vitals.Weight = models.Measured(v, at)
		}
	case obsResponsiveness:
		m.Observations.Responsiveness = value.strOr("value")
	case obsPain:
		m.Observations.Pain = value.strOr("value")
	case obsLastDefecation:
		m.Observations.LastDefecation = at
	case obsMisc:
		m.Observations.Misc = value.strOr("value")
	}
}

func decodeMedication(r node) models.Medication {
	med := r.obj("medication")
	ingr := med.obj("ingredient")
	out := models.Medication{
		Ingredient:         ingr.strOr("itemCodeableConcept"),
		Strength:           ingr.strOr("amount"),
		Brand:              med.strOr("manufacturer"),
		Form:               med.strOr("form"),
		Unit:               r.strOr("unit"),
		Note:               r.strOr("note"),
		PatientInstruction: r.strOr("patientInstruction"),
	}
	for _, v := range r.arr("dosageInstruction") {
		d := asNode(v)
		seq, ok := d.num("sequence")
		if !ok {
			continue
		}
		var qty string
		if s, ok := d.str("doseQuantity"); ok {
			qty = s
		} else if f, ok := d.num("doseQuantity"); ok {
			qty = formatDose(f)
		}
		out.SetDose(int(seq), qty)
	}
	return out
}

func intValue(q node) (int, bool) {
	f, ok := q.num("value")
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func parseTime(s, layout string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(layout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// splitAgent splits "<sender>/<initials>" at the last slash, so sender IDs
// may contain slashes of their own.
func splitAgent(ref string) (sender, initials string) {
	i := strings.LastIndex(ref, "/")
	if i < 0 {
		return ref, ""
	}
	return ref[:i], ref[i+1:]
}
