package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/samber/lo"
)

// RequirementsSchemaVersion is the current Form Slip record version.
// Version 1 rows predate the package and total columns.
const RequirementsSchemaVersion = 2

// CustomItem is a catalogue item picked outside the standard tests.
type CustomItem struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Category string   `json:"category,omitempty"`
	Price    *float64 `json:"price"`
}

// Requirements is the normalised Form Slip. Every field is populated.
type Requirements struct {
	SchemaVersion      int              `json:"schema_version"`
	AppointmentID      uuid.UUID        `json:"appointment_id"`
	PatientID          uuid.UUID        `json:"patient_id"`
	PackageCode        string           `json:"package_code"`
	PackagePrice       float64          `json:"package_price"`
	Tests              map[TestKey]bool `json:"tests"`
	LabCustomItems     []CustomItem     `json:"lab_custom_items"`
	XrayCustomItems    []CustomItem     `json:"xray_custom_items"`
	LabCustomTotal     float64          `json:"lab_custom_total"`
	XrayCustomTotal    float64          `json:"xray_custom_total"`
	StandardTotal      float64          `json:"standard_total"`
	ExtraStandardTotal float64          `json:"extra_standard_total"`
	TotalEstimate      float64          `json:"total_estimate"`
	NeedsLab           bool             `json:"needs_lab"`
	NeedsXray          bool             `json:"needs_xray"`
	FormSubmitted      bool             `json:"form_submitted"`
	FormSubmittedAt    *time.Time       `json:"form_submitted_at,omitempty"`
	UpdatedAt          *time.Time       `json:"updated_at,omitempty"`
}

// DefaultRequirements is the row inserted on approval.
func DefaultRequirements(a *Appointment) *Requirements {
	r := &Requirements{
		SchemaVersion: RequirementsSchemaVersion,
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		PackageCode:   PackageCustom,
		Tests:         make(map[TestKey]bool, len(StandardTests)),
	}
	for _, k := range DefaultTestsForType(a.AppointmentType) {
		r.Tests[k] = true
	}
	r.NeedsLab = true
	r.NeedsXray = true
	return r
}

// Selected returns the chosen standard tests in Form Slip order.
func (r *Requirements) Selected() []TestKey {
	return lo.Filter(StandardTests, func(k TestKey, _ int) bool { return r.Tests[k] })
}

// FormDone reports whether the patient has filled in the Form Slip.
func (r *Requirements) FormDone() bool {
	if r == nil {
		return false
	}
	if r.FormSubmitted || r.FormSubmittedAt != nil {
		return true
	}
	if len(r.Selected()) > 0 {
		return true
	}
	return len(r.LabCustomItems) > 0 || len(r.XrayCustomItems) > 0
}

// Recompute derives every total and the needs flags from the selections.
func (r *Requirements) Recompute() {
	code := strings.ToUpper(strings.TrimSpace(r.PackageCode))
	if _, ok := PackagePrices[code]; !ok {
		code = PackageCustom
	}
	r.PackageCode = code
	r.PackagePrice = PackagePrices[code]

	selected := r.Selected()
	included := PackageTests[code]

	r.StandardTotal = 0
	r.ExtraStandardTotal = 0
	for _, k := range selected {
		price := StandardTestPrices[k]
		r.StandardTotal += price
		if !lo.Contains(included, k) {
			r.ExtraStandardTotal += price
		}
	}

	r.LabCustomTotal = sumItems(r.LabCustomItems)
	r.XrayCustomTotal = sumItems(r.XrayCustomItems)
	r.TotalEstimate = r.PackagePrice + r.LabCustomTotal + r.XrayCustomTotal + r.ExtraStandardTotal

	r.NeedsLab = lo.SomeBy(selected, func(k TestKey) bool { return !k.IsXray() }) || len(r.LabCustomItems) > 0
	r.NeedsXray = r.Tests[TestChestXray] || len(r.XrayCustomItems) > 0
}

// Amount is the billable amount, false when nothing is billable.
func (r *Requirements) Amount() (float64, bool) {
	if r == nil {
		return 0, false
	}
	c := *r
	c.Recompute()
	if c.TotalEstimate <= 0 {
		return 0, false
	}
	return c.TotalEstimate, true
}

func sumItems(items []CustomItem) float64 {
	return lo.SumBy(items, func(i CustomItem) float64 {
		if i.Price == nil {
			return 0
		}
		return *i.Price
	})
}

// RequirementsRow mirrors appointment_requirements. Columns were added over
// time so most of them are nullable.
type RequirementsRow struct {
	AppointmentID      uuid.UUID      `db:"appointment_id"`
	PatientID          uuid.UUID      `db:"patient_id"`
	SchemaVersion      *int           `db:"schema_version"`
	PackageCode        *string        `db:"package_code"`
	PackagePrice       *float64       `db:"package_price"`
	TotalEstimate      *float64       `db:"total_estimate"`
	StandardTotal      *float64       `db:"standard_total"`
	ExtraStandardTotal *float64       `db:"extra_standard_total"`
	NeedsLab           *bool          `db:"needs_lab"`
	NeedsXray          *bool          `db:"needs_xray"`
	ExamPhysical       *bool          `db:"exam_physical"`
	ExamVisualAcuity   *bool          `db:"exam_visual_acuity"`
	ExamHeightWeight   *bool          `db:"exam_height_weight"`
	LabCBCPlatelet     *bool          `db:"lab_cbc_platelet"`
	LabUrinalysis      *bool          `db:"lab_urinalysis"`
	LabFecalysis       *bool          `db:"lab_fecalysis"`
	LabDrugTest        *bool          `db:"lab_drug_test"`
	LabHepatitisB      *bool          `db:"lab_hepatitis_b"`
	LabHepatitisA      *bool          `db:"lab_hepatitis_a"`
	LabECG             *bool          `db:"lab_ecg"`
	LabAudiometry      *bool          `db:"lab_audiometry"`
	LabBloodTyping     *bool          `db:"lab_blood_typing"`
	LabPregnancyTest   *bool          `db:"lab_pregnancy_test"`
	LabSalmonella      *bool          `db:"lab_salmonella"`
	XrayChest          *bool          `db:"xray_chest"`
	LabCustomItems     types.JSONText `db:"lab_custom_items"`
	LabCustomTotal     *float64       `db:"lab_custom_total"`
	XrayCustomItems    types.JSONText `db:"xray_custom_items"`
	XrayCustomTotal    *float64       `db:"xray_custom_total"`
	FormSubmitted      *bool          `db:"form_submitted"`
	FormSubmittedAt    *time.Time     `db:"form_submitted_at"`
	UpdatedAt          *time.Time     `db:"updated_at"`
}

func (row *RequirementsRow) flags() map[TestKey]**bool {
	return map[TestKey]**bool{
		TestPhysicalExam:  &row.ExamPhysical,
		TestVisualAcuity:  &row.ExamVisualAcuity,
		TestHeightWeight:  &row.ExamHeightWeight,
		TestCBCPlatelet:   &row.LabCBCPlatelet,
		TestUrinalysis:    &row.LabUrinalysis,
		TestFecalysis:     &row.LabFecalysis,
		TestDrugTest:      &row.LabDrugTest,
		TestHepatitisB:    &row.LabHepatitisB,
		TestHepatitisA:    &row.LabHepatitisA,
		TestECG:           &row.LabECG,
		TestAudiometry:    &row.LabAudiometry,
		TestBloodTyping:   &row.LabBloodTyping,
		TestPregnancyTest: &row.LabPregnancyTest,
		TestSalmonella:    &row.LabSalmonella,
		TestChestXray:     &row.XrayChest,
	}
}

// Normalize converts a stored row of any version into a Requirements.
// Missing flags read as false and missing totals are recomputed.
func (row *RequirementsRow) Normalize() (*Requirements, error) {
	r := &Requirements{
		SchemaVersion:   RequirementsSchemaVersion,
		AppointmentID:   row.AppointmentID,
		PatientID:       row.PatientID,
		Tests:           make(map[TestKey]bool, len(StandardTests)),
		FormSubmitted:   lo.FromPtr(row.FormSubmitted),
		FormSubmittedAt: row.FormSubmittedAt,
		UpdatedAt:       row.UpdatedAt,
		PackageCode:     lo.FromPtrOr(row.PackageCode, PackageCustom),
	}
	for k, p := range row.flags() {
		if *p != nil && **p {
			r.Tests[k] = true
		}
	}

	var err error
	if r.LabCustomItems, err = decodeItems(row.LabCustomItems); err != nil {
		return nil, fmt.Errorf("lab_custom_items: %w", err)
	}
	if r.XrayCustomItems, err = decodeItems(row.XrayCustomItems); err != nil {
		return nil, fmt.Errorf("xray_custom_items: %w", err)
	}

	r.Recompute()

	// Explicit needs flags on the row win over derived ones.
	if row.NeedsLab != nil {
		r.NeedsLab = *row.NeedsLab
	}
	if row.NeedsXray != nil {
		r.NeedsXray = *row.NeedsXray
	}
	return r, nil
}

// ToRow renders the record for storage at the current schema version.
func (r *Requirements) ToRow() (*RequirementsRow, error) {
	row := &RequirementsRow{
		AppointmentID:      r.AppointmentID,
		PatientID:          r.PatientID,
		SchemaVersion:      lo.ToPtr(RequirementsSchemaVersion),
		PackageCode:        lo.ToPtr(r.PackageCode),
		PackagePrice:       lo.ToPtr(r.PackagePrice),
		TotalEstimate:      lo.ToPtr(r.TotalEstimate),
		StandardTotal:      lo.ToPtr(r.StandardTotal),
		ExtraStandardTotal: lo.ToPtr(r.ExtraStandardTotal),
		NeedsLab:           lo.ToPtr(r.NeedsLab),
		NeedsXray:          lo.ToPtr(r.NeedsXray),
		LabCustomTotal:     lo.ToPtr(r.LabCustomTotal),
		XrayCustomTotal:    lo.ToPtr(r.XrayCustomTotal),
		FormSubmitted:      lo.ToPtr(r.FormSubmitted),
		FormSubmittedAt:    r.FormSubmittedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	for k, p := range row.flags() {
		*p = lo.ToPtr(r.Tests[k])
	}

	var err error
	if row.LabCustomItems, err = encodeItems(r.LabCustomItems); err != nil {
		return nil, err
	}
	if row.XrayCustomItems, err = encodeItems(r.XrayCustomItems); err != nil {
		return nil, err
	}
	return row, nil
}

func decodeItems(raw types.JSONText) ([]CustomItem, error) {
	items := []CustomItem{}
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "{}":
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func encodeItems(items []CustomItem) (types.JSONText, error) {
	if items == nil {
		items = []CustomItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode custom items: %w", err)
	}
	return types.JSONText(b), nil
}

// FormSlipRequest is the patient's Form Slip submission.
type FormSlipRequest struct {
	PackageCode     string       `json:"package_code" binding:"omitempty,oneof=A B C CUSTOM a b c custom"`
	Tests           []TestKey    `json:"tests"`
	LabCustomItems  []CustomItem `json:"lab_custom_items"`
	XrayCustomItems []CustomItem `json:"xray_custom_items"`
}
