package broker

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
	"github.com/geokit/databroker/record"
)

func TestReportLogsOnCodeChangeOnly(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s, err := New("report", 2, NoExit, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	// The same failure twice in a row logs once.
	s.ValidateID(family.Dataset, 12345, family.In, AnyInput)
	s.ValidateID(family.Dataset, 12345, family.In, AnyInput)
	if n := logs.Len(); n != 1 {
		t.Fatalf("repeated failure logged %d times, want 1", n)
	}

	// A different code logs again.
	s.GetRecord(record.ModeData)
	if n := logs.Len(); n != 2 {
		t.Fatalf("new failure code logged %d times total, want 2", n)
	}

	// And the repeat of the first code, after the change, logs again.
	s.ValidateID(family.Dataset, 12345, family.In, AnyInput)
	if n := logs.Len(); n != 3 {
		t.Fatalf("code change back logged %d times total, want 3", n)
	}
}

func TestLastErrorCodeTracksFailures(t *testing.T) {
	s := newTestSession(t)

	if s.LastErrorCode() != errors.CodeOK {
		t.Fatalf("fresh session code = %v, want ok", s.LastErrorCode())
	}

	s.ValidateID(family.Dataset, 777, family.In, AnyInput)
	if s.LastErrorCode() != errors.CodeNotAValidID {
		t.Fatalf("code = %v, want not_a_valid_id", s.LastErrorCode())
	}

	s.GetRecord(record.ModeData)
	if s.LastErrorCode() != errors.CodeAccessNotEnabled {
		t.Fatalf("code = %v, want access_not_enabled", s.LastErrorCode())
	}
}
