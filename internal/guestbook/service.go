// Package guestbook implements the public guestbook: validated, filtered
// submissions appended to an immutable log, and a newest-first recent view.
package guestbook

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"memorybook/internal/gate"
	"memorybook/internal/rowstore"
)

const (
	maxNameLen    = 50
	maxMessageLen = 500
	maxRecent     = 50

	defaultRole = "friend"
	dateFormat  = "2006-01-02 15:04:05"
)

// header of the guestbook tab, written once when the tab is created.
var header = []string{"Timestamp", "Name", "Role", "Message", "Date", "ImageURL"}

// ImageStore persists an uploaded image and returns its public URL.
type ImageStore interface {
	SaveDataURL(ctx context.Context, dataURL, name string) (string, error)
}

// Submission is one inbound guestbook post.
type Submission struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Message string `json:"message"`
	Image   string `json:"image"`
}

// Entry is one guestbook row as served to the page, newest first.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	DateStr   string    `json:"dateStr"`
	ImageURL  string    `json:"imageUrl"`
}

// SubmitResult reports what a successful submission actually persisted.
// The image is best-effort: TextPersisted true with ImagePersisted false
// means the entry was stored without its picture.
type SubmitResult struct {
	TextPersisted  bool
	ImagePersisted bool
}

// ValidationError rejects bad input; its message is user-facing.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Service is the guestbook write and read path.
type Service struct {
	store  rowstore.Store
	images ImageStore
	gate   gate.Gate
	tab    string
	loc    *time.Location
	now    func() time.Time
}

// New creates a guestbook service. images may be nil when image storage is
// not configured; submissions then degrade to text-only. dateLoc is the
// zone used for the human-readable date column.
func New(store rowstore.Store, images ImageStore, g gate.Gate, tab string, dateLoc *time.Location) *Service {
	if tab == "" {
		tab = "Guestbook"
	}
	if dateLoc == nil {
		dateLoc = time.UTC
	}
	return &Service{
		store:  store,
		images: images,
		gate:   g,
		tab:    tab,
		loc:    dateLoc,
		now:    time.Now,
	}
}

// Submit validates, filters, and appends one entry. All writes are
// serialized through the gate; gate.ErrBusy means the caller should retry
// later. A *ValidationError is user input being rejected, anything else is
// a fault in a collaborator.
func (s *Service) Submit(ctx context.Context, in Submission) (SubmitResult, error) {
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		return SubmitResult{}, err
	}
	defer release()

	if err := validate(in); err != nil {
		return SubmitResult{}, err
	}
	if ContainsProfanity(in.Message) || ContainsProfanity(in.Name) {
		return SubmitResult{}, &ValidationError{
			Field:   "message",
			Message: "โปรดใช้ถ้อยคำที่สุภาพ (Please use polite language)",
		}
	}

	ts := s.now()
	role := in.Role
	if role == "" {
		role = defaultRole
	}

	var result SubmitResult
	imageURL := ""
	if in.Image != "" {
		imageURL = s.saveImage(ctx, in.Image, ts)
		result.ImagePersisted = imageURL != ""
	}

	row := []string{
		ts.UTC().Format(time.RFC3339),
		in.Name,
		role,
		in.Message,
		ts.In(s.loc).Format(dateFormat),
		imageURL,
	}
	if err := s.store.Append(ctx, s.tab, header, row); err != nil {
		return SubmitResult{}, fmt.Errorf("guestbook: append entry: %w", err)
	}
	result.TextPersisted = true
	return result, nil
}

// saveImage stores the image best-effort; on any failure the entry keeps
// an empty URL instead of aborting the submission.
func (s *Service) saveImage(ctx context.Context, dataURL string, ts time.Time) string {
	if s.images == nil {
		log.Println("guestbook: image storage not configured, dropping image")
		return ""
	}
	name := fmt.Sprintf("guestbook_%d", ts.UnixMilli())
	url, err := s.images.SaveDataURL(ctx, dataURL, name)
	if err != nil {
		log.Printf("guestbook: saving image: %v", err)
		return ""
	}
	return url
}

// Recent returns up to 50 entries, newest first. It never fails: a missing
// or empty tab is an empty slice, and a store fault becomes a single
// synthetic entry carrying the diagnostic.
func (s *Service) Recent(ctx context.Context) []Entry {
	rows, err := s.store.ReadTail(ctx, s.tab, maxRecent)
	if err != nil {
		log.Printf("guestbook: reading entries: %v", err)
		return []Entry{{
			Timestamp: s.now(),
			Name:      "System Error",
			Role:      "secret",
			Message:   "Error: " + err.Error(),
		}}
	}

	entries := make([]Entry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		entries = append(entries, s.decodeEntry(rows[i]))
	}
	return entries
}

// decodeEntry coerces one row defensively; a malformed row never fails the
// whole read.
func (s *Service) decodeEntry(row []string) Entry {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	ts, err := time.Parse(time.RFC3339, cell(0))
	if err != nil {
		ts = s.now()
	}
	name := cell(1)
	if name == "" {
		name = "Unknown"
	}
	role := cell(2)
	if role == "" {
		role = defaultRole
	}
	return Entry{
		Timestamp: ts,
		Name:      name,
		Role:      role,
		Message:   cell(3),
		DateStr:   cell(4),
		ImageURL:  cell(5),
	}
}

func validate(in Submission) error {
	if in.Name == "" || utf8.RuneCountInString(in.Name) > maxNameLen {
		return &ValidationError{
			Field:   "name",
			Message: "ชื่อต้องไม่ว่างและไม่เกิน 50 ตัวอักษร",
		}
	}
	if in.Message == "" || utf8.RuneCountInString(in.Message) > maxMessageLen {
		return &ValidationError{
			Field:   "message",
			Message: "ข้อความต้องไม่ว่างและไม่เกิน 500 ตัวอักษร",
		}
	}
	return nil
}
