// Package lookup finds a student's private memorial content (teacher VTR
// link and letter) by student ID across the class tabs.
package lookup

import (
	"context"
	"fmt"
	"log"
	"strings"

	"memorybook/internal/rowstore"
)

// Result statuses of a student lookup, mirrored in the API response.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Expected class tab layout: [ID, Name, Class, VideoLink, LetterText].
const (
	colID           = 0
	studentRowWidth = 5
)

// StudentRecord is one class-tab row decoded into named fields.
type StudentRecord struct {
	Name              string `json:"name"`
	Class             string `json:"class"`
	TeacherVTRLink    string `json:"teacherVtrLink"`
	PrivateLetterText string `json:"privateLetterText"`
}

// Result is the tagged outcome of FindStudent; exactly one of Data or
// Message is populated depending on Status.
type Result struct {
	Status  string         `json:"status"`
	Data    *StudentRecord `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Service scans the configured class tabs in order.
type Service struct {
	store rowstore.Store
	tabs  []string
}

// New creates a lookup service over the given class tabs.
func New(store rowstore.Store, tabs []string) *Service {
	return &Service{store: store, tabs: tabs}
}

// FindStudent looks the trimmed ID up tab by tab; the first match wins.
// Faults never escape: any store problem becomes an error result.
func (s *Service) FindStudent(ctx context.Context, studentID string) Result {
	id := strings.TrimSpace(studentID)
	if id == "" {
		return Result{Status: StatusError, Message: "กรุณากรอกเลขประจำตัวนักเรียน"}
	}

	for _, tab := range s.tabs {
		row, found, err := s.store.FindRow(ctx, tab, colID, id)
		if err != nil {
			log.Printf("lookup: scanning tab %s: %v", tab, err)
			return Result{Status: StatusError, Message: "เกิดข้อผิดพลาดในการดึงข้อมูล: " + err.Error()}
		}
		if !found {
			continue
		}
		rec, err := decodeStudentRow(row)
		if err != nil {
			log.Printf("lookup: tab %s, id %s: %v", tab, id, err)
			return Result{Status: StatusError, Message: "เกิดข้อผิดพลาดในการดึงข้อมูล: " + err.Error()}
		}
		log.Printf("lookup: found student %s in tab %s", rec.Name, tab)
		return Result{Status: StatusSuccess, Data: rec}
	}

	return Result{Status: StatusNotFound, Message: "ไม่พบเลขประจำตัวนักเรียนนี้ในระบบ (ค้นหาในห้อง 6/1 - 6/8 แล้ว)"}
}

// decodeStudentRow turns a positional row into a named record. A row
// narrower than the class-tab schema is a schema error, not silent empties.
func decodeStudentRow(row []string) (*StudentRecord, error) {
	if len(row) < studentRowWidth {
		return nil, fmt.Errorf("student row has %d columns, want %d", len(row), studentRowWidth)
	}
	return &StudentRecord{
		Name:              row[1],
		Class:             row[2],
		TeacherVTRLink:    row[3],
		PrivateLetterText: row[4],
	}, nil
}
