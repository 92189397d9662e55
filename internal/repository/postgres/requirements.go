package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

var requirementsColumns = []string{
	"appointment_id", "patient_id", "schema_version", "package_code", "package_price",
	"total_estimate", "standard_total", "extra_standard_total", "needs_lab", "needs_xray",
	"exam_physical", "exam_visual_acuity", "exam_height_weight",
	"lab_cbc_platelet", "lab_urinalysis", "lab_fecalysis", "lab_drug_test",
	"lab_hepatitis_b", "lab_hepatitis_a", "lab_ecg", "lab_audiometry",
	"lab_blood_typing", "lab_pregnancy_test", "lab_salmonella", "xray_chest",
	"lab_custom_items", "lab_custom_total", "xray_custom_items", "xray_custom_total",
	"form_submitted", "form_submitted_at", "updated_at",
}

var (
	requirementsSelect = `SELECT ` + strings.Join(requirementsColumns, ", ") +
		` FROM appointment_requirements WHERE appointment_id = $1`

	requirementsInsert = `INSERT INTO appointment_requirements (` + strings.Join(requirementsColumns, ", ") +
		`) VALUES (` + strings.Join(lo.Map(requirementsColumns, func(c string, _ int) string { return ":" + c }), ", ") + `)`

	requirementsUpdateSet = strings.Join(lo.FilterMap(requirementsColumns, func(c string, _ int) (string, bool) {
		return c + " = EXCLUDED." + c, c != "appointment_id"
	}), ", ")
)

// Get returns the normalised Form Slip whatever version the row was written at.
func (r *requirementsRepository) Get(ctx context.Context, appointmentID uuid.UUID) (*model.Requirements, error) {
	var row model.RequirementsRow
	if err := r.db.GetContext(ctx, &row, requirementsSelect, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get appointment requirements: %w", notFound(err))
	}

	req, err := row.Normalize()
	if err != nil {
		return nil, fmt.Errorf("failed to normalize appointment requirements: %w", err)
	}
	return req, nil
}

func (r *requirementsRepository) EnsureExists(ctx context.Context, req *model.Requirements) error {
	row, err := req.ToRow()
	if err != nil {
		return err
	}

	query := requirementsInsert + ` ON CONFLICT (appointment_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to ensure appointment requirements: %w", err)
	}
	return nil
}

func (r *requirementsRepository) Save(ctx context.Context, req *model.Requirements) error {
	row, err := req.ToRow()
	if err != nil {
		return err
	}

	query := requirementsInsert + ` ON CONFLICT (appointment_id) DO UPDATE SET ` + requirementsUpdateSet
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save appointment requirements: %w", err)
	}
	return nil
}
