package intake

import "github.com/vetcare/intake/pkg/forms"

// Step is one panel of the wizard.
type Step struct {
	Index  int
	Name   string
	Title  string
	Fields []string
}

// Step indexes.
const (
	StepOwner = iota
	StepPatient
	StepVitals
	StepClinical
	StepReview
)

// Steps is the fixed wizard order. The last step is the review step.
var Steps = []Step{
	{
		Index:  StepOwner,
		Name:   "owner",
		Title:  "Owner",
		Fields: []string{"ownerName", "ownerPhone", "ownerEmail", "ownerAddress"},
	},
	{
		Index:  StepPatient,
		Name:   "patient",
		Title:  "Patient",
		Fields: []string{"petName", "petSpecies", "petBreed", "petAge", "petGender", "neutering_status"},
	},
	{
		Index:  StepVitals,
		Name:   "vitals",
		Title:  "Vitals & exam",
		Fields: []string{"weight", "temperature", "heartRate", "capillaryRefill", "mucousMembrane", "physicalExamNotes"},
	},
	{
		Index:  StepClinical,
		Name:   "clinical",
		Title:  "Clinical",
		Fields: []string{"presentingComplaint", "diagnosis", "treatment", "prescriptions", "followUp"},
	},
	{
		Index: StepReview,
		Name:  "review",
		Title: "Review",
	},
}

// ReviewStep is the index of the final, read-only step.
var ReviewStep = len(Steps) - 1

// CaseForm is the field catalog in payload order.
var CaseForm = forms.NewForm("patient-intake",
	forms.NewField("ownerName", "client_name", forms.FieldText, "Owner name",
		forms.WithRequired(), forms.WithPlaceholder("Full name")),
	forms.NewField("ownerPhone", "client_phone_number", forms.FieldTel, "Phone number",
		forms.WithRequired(), forms.WithPlaceholder("0712345678")),
	forms.NewField("ownerEmail", "client_email", forms.FieldEmail, "Email",
		forms.WithRequired(), forms.WithPlaceholder("owner@example.com")),
	forms.NewField("ownerAddress", "client_location", forms.FieldText, "Location",
		forms.WithRequired()),

	forms.NewField("petName", "patient_name", forms.FieldText, "Pet name",
		forms.WithRequired()),
	forms.NewField("petSpecies", "species", forms.FieldSelect, "Species",
		forms.WithRequired(),
		forms.WithOptions(
			forms.Option{Value: "", Label: "Select species"},
			forms.Option{Value: "dog", Label: "Dog"},
			forms.Option{Value: "cat", Label: "Cat"},
			forms.Option{Value: "bird", Label: "Bird"},
			forms.Option{Value: "rabbit", Label: "Rabbit"},
			forms.Option{Value: "other", Label: "Other"},
		)),
	forms.NewField("petBreed", "breed", forms.FieldText, "Breed", forms.WithOptional()),
	forms.NewField("petAge", "age", forms.FieldText, "Age", forms.WithOptional(),
		forms.WithPlaceholder("e.g. 3 years")),
	forms.NewField("petGender", "gender", forms.FieldSelect, "Gender",
		forms.WithRequired(),
		forms.WithOptions(
			forms.Option{Value: "", Label: "Select gender"},
			forms.Option{Value: "male", Label: "Male"},
			forms.Option{Value: "female", Label: "Female"},
		)),
	forms.NewField("neutering_status", "", forms.FieldSelect, "Neutering status",
		forms.WithOptional(),
		forms.WithOptions(
			forms.Option{Value: "", Label: "Select status"},
			forms.Option{Value: "Neutered", Label: "Neutered"},
			forms.Option{Value: "Spayed", Label: "Spayed"},
			forms.Option{Value: "Intact", Label: "Intact"},
		)),

	forms.NewField("weight", "", forms.FieldText, "Weight (kg)", forms.WithOptional()),
	forms.NewField("temperature", "", forms.FieldText, "Temperature (°C)", forms.WithOptional()),
	forms.NewField("heartRate", "heart_rate", forms.FieldText, "Heart rate (bpm)", forms.WithOptional()),
	forms.NewField("capillaryRefill", "crt", forms.FieldText, "CRT", forms.WithOptional()),
	forms.NewField("mucousMembrane", "mm", forms.FieldText, "Mucous membranes", forms.WithOptional()),
	forms.NewField("physicalExamNotes", "", forms.FieldTextarea, "Physical exam notes", forms.WithOptional()),

	forms.NewField("presentingComplaint", "presenting_complaint", forms.FieldTextarea, "Presenting complaint", forms.WithOptional()),
	forms.NewField("diagnosis", "", forms.FieldTextarea, "Diagnosis", forms.WithOptional()),
	forms.NewField("treatment", "treatment_given", forms.FieldTextarea, "Treatment given", forms.WithOptional()),
	forms.NewField("prescriptions", "", forms.FieldTextarea, "Prescriptions", forms.WithOptional()),
	forms.NewField("followUp", "follow_up_required", forms.FieldText, "Follow-up", forms.WithOptional()),
)
