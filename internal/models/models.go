package models

import "fmt"

// MedicalReportSummary represents the fields extracted from a medical report
type MedicalReportSummary struct {
	PatientName         string `json:"patient_name" yaml:"patient_name"`
	DateOfBirth         string `json:"date_of_birth" yaml:"date_of_birth"`                 // YYYY-MM-DD
	MedicalRecordNumber string `json:"medical_record_number" yaml:"medical_record_number"` // MRN
	DateOfReport        string `json:"date_of_report" yaml:"date_of_report"`               // YYYY-MM-DD
	ReportSummary       string `json:"report_summary" yaml:"report_summary"`
}

// String renders the summary in the labelled, one-field-per-line form
func (m MedicalReportSummary) String() string {
	return fmt.Sprintf("Patient Name: %s\nDate of Birth: %s\nMRN: %s\nReport Date: %s\nSummary: %s",
		m.PatientName,
		m.DateOfBirth,
		m.MedicalRecordNumber,
		m.DateOfReport,
		m.ReportSummary,
	)
}

// Field describes one property of MedicalReportSummary for schema generation
type Field struct {
	Key         string
	Title       string
	Description string
}

// Fields lists the record properties in declaration order
var Fields = []Field{
	{Key: "patient_name", Title: "Patient Name", Description: "The patient's full name."},
	{Key: "date_of_birth", Title: "Date Of Birth", Description: "The patient's date of birth (YYYY-MM-DD)."},
	{Key: "medical_record_number", Title: "Medical Record Number", Description: "The patient's Medical Record Number (MRN)."},
	{Key: "date_of_report", Title: "Date Of Report", Description: "The date the report was generated (YYYY-MM-DD)."},
	{Key: "report_summary", Title: "Report Summary", Description: "A concise summary of the medical report."},
}
