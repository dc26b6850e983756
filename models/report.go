package models

import (
	"time"
)

// Gender is the reporter's gender as collected by the form.
type Gender string

const (
	GenderMale   Gender = "pria"
	GenderFemale Gender = "wanita"
)

// Valid reports whether g is one of the two accepted values. Empty is allowed.
func (g Gender) Valid() bool {
	return g == "" || g == GenderMale || g == GenderFemale
}

// Report represents a row of the reports table
type Report struct {
	ID            int64     `json:"id"`
	Name          string    `json:"nama"`
	Phone         string    `json:"nomor_hp"`
	Email         *string   `json:"email"`
	Facility      string    `json:"lokasi_puskesmas"`
	Gender        Gender    `json:"jenis_kelamin"`
	Description   string    `json:"deskripsi"`
	IncidentDate  *string   `json:"tanggal"`
	WoundImage    *string   `json:"unggah_gambar_luka"`
	WoundScore    *int      `json:"wound_score"`
	EvidenceImage string    `json:"bukti_pendukung"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReportFields is what the store needs to insert a report, already in storage vocabulary.
type ReportFields struct {
	Name          string
	Phone         string
	Email         *string
	Facility      string
	Gender        Gender
	Description   string
	IncidentDate  *string
	WoundImage    *string
	WoundScore    *int
	EvidenceImage string
}

// ReportForm is the multipart form as submitted by the frontend.
type ReportForm struct {
	Nama            string `form:"nama"`
	NomorHp         string `form:"nomorHp"`
	Email           string `form:"email"`
	LokasiPuskesmas string `form:"lokasi_puskesmas"`
	Lokasi          string `form:"lokasi"`
	JenisKelamin    string `form:"jenis_kelamin"`
	Gender          string `form:"gender"`
	Deskripsi       string `form:"deskripsi"`
	Tanggal         string `form:"tanggal"`
	WoundScore      string `form:"wound_score"`
}

// UploadedFile describes a multipart file already persisted to the upload directory.
type UploadedFile struct {
	FieldName    string
	OriginalName string
	Path         string
	MediaType    string
	Size         int64
}

// ReportFiles holds the files submitted along with a report.
type ReportFiles struct {
	Evidence *UploadedFile
	Wound    *UploadedFile
}

// ScoreResult is the parsed output of a severity scoring call.
type ScoreResult struct {
	SeverityScore int    `json:"severity_score"`
	Reasoning     string `json:"reasoning,omitempty"`
}

// ImagePayload is an image transcoded to base64 text with its media type.
type ImagePayload struct {
	Data      string
	MediaType string
}

// DataURL renders the payload as a data URL.
func (p *ImagePayload) DataURL() string {
	return "data:" + p.MediaType + ";base64," + p.Data
}
