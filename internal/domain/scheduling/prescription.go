package scheduling

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/tshakameya123/Kaga-Hospital/internal/platform/pdf"
)

var medicineColumns = []float64{70, 35, 45, 40}

// WritePrescription renders a doctor note and its medicines as a PDF the
// patient can take to a pharmacy.
func (s *Service) WritePrescription(ctx context.Context, noteID uuid.UUID, w io.Writer) error {
	n, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return err
	}
	a, err := s.appointments.GetByID(ctx, n.AppointmentID)
	if err != nil {
		return err
	}
	patient, err := s.directory.GetPatient(ctx, n.PatientID)
	if err != nil {
		return err
	}
	doctorName := "-"
	if doc, err := s.directory.GetStaff(ctx, n.DoctorID); err == nil {
		doctorName = "Dr. " + doc.Name
	}

	doc := pdf.New("Prescription")
	doc.Detail("Patient", patient.Name)
	doc.Detail("Doctor", doctorName)
	doc.Detail("Department", a.Department)
	doc.Detail("Visit", a.Date()+" "+a.Slot)

	if len(n.Medicines) > 0 {
		doc.Section("Medicines")
		doc.Row(medicineColumns, []string{"Medicine", "Dose", "Frequency", "Duration"}, true)
		for _, m := range n.Medicines {
			doc.Row(medicineColumns, []string{m.Name, m.Dose, m.Frequency, m.Duration}, false)
		}
	}
	doc.Section("Notes")
	doc.Paragraph(n.Notes)
	return doc.Write(w)
}
