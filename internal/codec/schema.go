package codec

// Wire shapes of a message document. Field names follow the FHIR-flavoured
// layout the documents have always used, so they are stable.

type reference struct {
	Reference string `json:"reference"`
	Display   string `json:"display,omitempty"`
}

type requester struct {
	Agent      reference `json:"agent"`
	OnBehalfOf reference `json:"onBehalfOf"`
}

type archiveEntry struct {
	User string `json:"user"`
	Date string `json:"date"`
}

type document struct {
	ResourceType string         `json:"resourceType"`
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Priority     int            `json:"priority"`
	Title        string         `json:"title"`
	Note         string         `json:"note"`
	AuthoredOn   string         `json:"authoredOn"`
	Subject      reference      `json:"subject"`
	Requester    requester      `json:"requester"`
	ArchivedFor  []archiveEntry `json:"archivedFor"`
	Payload      payload        `json:"payload"`
}

type humanName struct {
	Text string `json:"text"`
}

type meta struct {
	Profile string `json:"profile"`
}

type patient struct {
	ResourceType         string      `json:"resourceType"`
	Meta                 meta        `json:"meta"`
	Name                 humanName   `json:"name"`
	Gender               string      `json:"gender,omitempty"`
	BirthDate            string      `json:"birthDate"`
	GeneralPractitioner  []reference `json:"generalPractitioner"`
	ManagingOrganization reference   `json:"managingOrganization"`
}

type payload struct {
	Patient            patient             `json:"patient"`
	Observations       []observation       `json:"observations,omitempty"`
	MedicationRequests []medicationRequest `json:"medicationRequests,omitempty"`
	Media              []media             `json:"media,omitempty"`
	DocumentReferences []documentReference `json:"documentReferences,omitempty"`
}

type coding struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display"`
}

type codeableConcept struct {
	Coding []coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type quantity struct {
	Value  any    `json:"value"`
	Unit   string `json:"unit,omitempty"`
	System string `json:"system,omitempty"`
	Code   string `json:"code,omitempty"`
}

type component struct {
	Code          codeableConcept `json:"code"`
	ValueQuantity quantity        `json:"valueQuantity"`
}

type observation struct {
	ResourceType      string          `json:"resourceType"`
	ID                string          `json:"id"`
	Meta              *meta           `json:"meta,omitempty"`
	Status            string          `json:"status"`
	Category          *codeableConcept `json:"category,omitempty"`
	Code              *codeableConcept `json:"code,omitempty"`
	Subject           reference       `json:"subject"`
	EffectiveDateTime string          `json:"effectiveDateTime,omitempty"`
	ValueQuantity     *quantity       `json:"valueQuantity,omitempty"`
	Component         []component     `json:"component,omitempty"`
}

type ingredient struct {
	ItemCodeableConcept string `json:"itemCodeableConcept"`
	Amount              string `json:"amount"`
}

type medication struct {
	Ingredient   ingredient `json:"ingredient"`
	Manufacturer string     `json:"manufacturer"`
	Form         string     `json:"form"`
}

type repeat struct {
	When string `json:"when"`
}

type timing struct {
	Repeat repeat `json:"repeat"`
}

type dosage struct {
	Sequence     int    `json:"sequence"`
	Timing       timing `json:"timing"`
	DoseQuantity any    `json:"doseQuantity,omitempty"`
}

type medicationRequest struct {
	ResourceType       string     `json:"resourceType"`
	Status             string     `json:"status"`
	Intent             string     `json:"intent"`
	Subject            reference  `json:"subject"`
	AuthoredOn         string     `json:"authoredOn"`
	Medication         medication `json:"medication"`
	DosageInstruction  []dosage   `json:"dosageInstruction"`
	Unit               string     `json:"unit"`
	Note               string     `json:"note"`
	PatientInstruction string     `json:"patientInstruction"`
}

type media struct {
	ResourceType string `json:"resourceType"`
	Type         string `json:"type"`
	Subject      string `json:"subject"`
	Content      string `json:"content"`
	Operator     string `json:"operator"`
}

type documentReference struct {
	ResourceType string `json:"resourceType"`
	ContentType  string `json:"contentType"`
	Content      string `json:"content"`
	Author       string `json:"author"`
}
