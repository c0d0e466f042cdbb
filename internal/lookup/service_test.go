package lookup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"memorybook/internal/rowstore"
)

var classHeader = []string{"ID", "Name", "Class", "VideoLink", "LetterText"}

type faultyStore struct{ err error }

func (f *faultyStore) FindRow(ctx context.Context, tab string, col int, value string) ([]string, bool, error) {
	return nil, false, f.err
}
func (f *faultyStore) ReadTail(ctx context.Context, tab string, n int) ([][]string, error) {
	return nil, f.err
}
func (f *faultyStore) Append(ctx context.Context, tab string, header, row []string) error {
	return f.err
}

func seededStore() *rowstore.Memory {
	m := rowstore.NewMemory()
	m.Seed("6_1", classHeader,
		[]string{"11111", "Anan", "6/1", "https://vtr/1", "letter one"},
	)
	m.Seed("6_3", classHeader,
		[]string{"12345", "Somsri", "6/3", "https://vtr/3", "letter three"},
	)
	return m
}

func TestFindStudentSuccess(t *testing.T) {
	svc := New(seededStore(), []string{"6_1", "6_2", "6_3"})

	res := svc.FindStudent(context.Background(), "12345")
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", res.Status, res.Message)
	}
	if res.Data == nil {
		t.Fatalf("missing data")
	}
	if res.Data.Name != "Somsri" || res.Data.Class != "6/3" {
		t.Fatalf("wrong record: %+v", res.Data)
	}
	if res.Data.TeacherVTRLink != "https://vtr/3" || res.Data.PrivateLetterText != "letter three" {
		t.Fatalf("wrong private fields: %+v", res.Data)
	}
}

func TestFindStudentTrimsInput(t *testing.T) {
	svc := New(seededStore(), []string{"6_1"})
	res := svc.FindStudent(context.Background(), "  11111 ")
	if res.Status != StatusSuccess {
		t.Fatalf("expected success for padded id, got %s", res.Status)
	}
}

func TestFindStudentNotFound(t *testing.T) {
	svc := New(seededStore(), []string{"6_1", "6_3"})
	res := svc.FindStudent(context.Background(), "99999")
	if res.Status != StatusNotFound {
		t.Fatalf("expected not_found, got %s", res.Status)
	}
	if res.Message == "" {
		t.Fatalf("not_found should carry a message")
	}
}

func TestFindStudentEmptyIDSkipsScan(t *testing.T) {
	// A store that always faults proves no tab is touched for empty input.
	svc := New(&faultyStore{err: errors.New("must not be called")}, []string{"6_1"})

	for _, id := range []string{"", "   "} {
		res := svc.FindStudent(context.Background(), id)
		if res.Status != StatusError {
			t.Fatalf("expected error status for %q, got %s", id, res.Status)
		}
		if strings.Contains(res.Message, "must not be called") {
			t.Fatalf("store was scanned for empty input")
		}
	}
}

func TestFindStudentFirstMatchWins(t *testing.T) {
	m := seededStore()
	m.Seed("6_2", classHeader,
		[]string{"77777", "InTabTwo", "6/2", "https://vtr/2", "letter"},
	)
	m.Seed("6_4", classHeader,
		[]string{"77777", "InTabFour", "6/4", "https://vtr/4", "letter"},
	)
	svc := New(m, []string{"6_1", "6_2", "6_3", "6_4"})

	res := svc.FindStudent(context.Background(), "77777")
	if res.Status != StatusSuccess || res.Data.Name != "InTabTwo" {
		t.Fatalf("expected first tab in scan order to win, got %+v", res)
	}
}

func TestFindStudentShortRowIsSchemaError(t *testing.T) {
	m := rowstore.NewMemory()
	m.Seed("6_1", classHeader,
		[]string{"55555", "NoLinkOrLetter"},
	)
	svc := New(m, []string{"6_1"})

	res := svc.FindStudent(context.Background(), "55555")
	if res.Status != StatusError {
		t.Fatalf("expected schema error, got %s", res.Status)
	}
}

func TestFindStudentStoreFault(t *testing.T) {
	svc := New(&faultyStore{err: errors.New("connection refused")}, []string{"6_1"})
	res := svc.FindStudent(context.Background(), "12345")
	if res.Status != StatusError {
		t.Fatalf("expected error status, got %s", res.Status)
	}
	if !strings.Contains(res.Message, "connection refused") {
		t.Fatalf("error result should carry the diagnostic, got %q", res.Message)
	}
}
