package broker

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
)

// VFilePrefix starts every virtual filename. Any filename argument
// beginning with it is intercepted wherever a filename is expected.
const VFilePrefix = "@DATABROKER@"

// vfileLen is the full name length: prefix, dash, six digits.
var vfileLen = len(VFilePrefix) + 7

// IsVFile reports whether name is a virtual filename.
func IsVFile(name string) bool {
	return strings.HasPrefix(name, VFilePrefix)
}

// EncodeVFile renders the virtual filename for a resource ID.
func EncodeVFile(id int) string {
	return fmt.Sprintf("%s-%06d", VFilePrefix, id)
}

// DecodeVFileID extracts the resource ID from a virtual filename.
func DecodeVFileID(name string) (int, error) {
	if !IsVFile(name) || len(name) != vfileLen || name[len(VFilePrefix)] != '-' {
		return -1, errors.New(errors.PhaseLookup, errors.CodeNotAValidID).
			Detail("malformed virtual filename %q", name).Build()
	}
	id, err := strconv.Atoi(name[len(VFilePrefix)+1:])
	if err != nil || id < 1 {
		return -1, errors.New(errors.PhaseLookup, errors.CodeNotAValidID).
			Detail("malformed virtual filename %q", name).Build()
	}
	return id, nil
}

// OpenVirtualFile wraps an in-memory container as a named resource so
// one module's output can become another's input with no disk I/O.
//
// For In, payload is the container to read; a prior registration of
// the same container is recycled. For Out with a container, the
// container receives the output; with a nil payload a fresh growable
// container of the family is allocated and registered as a messenger.
// The returned name is passed wherever a filename is expected.
func (s *Session) OpenVirtualFile(f family.Family, geom family.Geometry, dir family.Direction, payload any) (string, error) {
	if s.destroyed {
		return "", s.report(errors.NoSession())
	}

	method := family.MethodReference
	switch payload.(type) {
	case *container.Matrix:
		if f == family.Dataset {
			method |= family.ViaMatrix
		}
	case *container.Vector:
		if f == family.Dataset {
			method |= family.ViaVector
		}
	}

	if dir == family.In && payload == nil {
		return "", s.report(errors.PtrIsNull(0, "virtual file input requires a container"))
	}

	// Recycle a prior registration of the same container.
	if payload != nil {
		for _, d := range s.objects {
			if d.Direction == dir && (d.Resource == payload || d.Data == payload) {
				d.Status = family.Unused
				d.resetCursors()
				if d.Data == payload {
					// Back to readable orientation.
					d.Resource, d.Data = payload, nil
				}
				return EncodeVFile(d.ID), nil
			}
		}
	}

	var id int
	var err error
	switch {
	case payload != nil:
		id, err = s.Register(f, method, geom, dir, payload)
	default:
		// Fresh growable output container awaiting content.
		var fresh container.Owned
		switch f {
		case family.Dataset:
			if s.Flags&ColumnMajor != 0 {
				// Column-major hosts receive tabular output as a
				// matrix masquerading as a dataset.
				fresh = &container.Matrix{}
				method |= family.ViaMatrix
			} else {
				fresh = container.NewDataset()
			}
		case family.TextSet:
			fresh = container.NewTextSet()
		case family.Matrix:
			fresh = &container.Matrix{}
		case family.Vector:
			fresh = &container.Vector{}
		default:
			return "", s.report(errors.New(errors.PhaseRegister, errors.CodeInvalidFamily).
				Detail("no growable container for family %s", f).Build())
		}
		id, err = s.Register(f, method, geom, dir, fresh)
		if err == nil {
			d := s.byID[id]
			d.Messenger = true
			adoptInternal(s, d, fresh)
		}
	}
	if err != nil {
		return "", err
	}

	s.logger.Debug("virtual file opened",
		zap.Uint64("session", s.ID),
		zap.Int("id", id),
		zap.String("direction", dir.String()))
	return EncodeVFile(id), nil
}

// CloseVirtualFile ends the use of a virtual filename. Input resources
// are swapped back to producer orientation and a masqueraded family is
// restored to its declared kind.
func (s *Session) CloseVirtualFile(name string) error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	id, err := DecodeVFileID(name)
	if err != nil {
		return s.report(err)
	}
	d, ok := s.byID[id]
	if !ok {
		return s.report(errors.NotAValidID(id, "virtual file names an unregistered object"))
	}

	if d.Direction == family.In && d.Data != nil {
		d.Resource, d.Data = d.Data, nil
	}
	if d.Family != d.ActualFamily && d.ActualFamily != family.NotSet {
		d.Family = d.ActualFamily
	}
	return nil
}

// ReadVirtualFile retrieves the payload a writer produced under the
// given virtual filename. Reading twice, or reading before the writer
// finished, is an error.
func (s *Session) ReadVirtualFile(name string) (any, error) {
	if s.destroyed {
		return nil, s.report(errors.NoSession())
	}
	id, err := DecodeVFileID(name)
	if err != nil {
		return nil, s.report(err)
	}
	d, ok := s.byID[id]
	if !ok {
		return nil, s.report(errors.NotAValidID(id, "virtual file names an unregistered object"))
	}
	if d.Resource == nil {
		return nil, s.report(errors.PtrIsNull(id, "virtual file holds no payload"))
	}
	if d.Data != nil {
		return nil, s.report(errors.ReadOnce(id))
	}

	d.Data = d.Resource
	return d.Resource, nil
}

// InitVirtualFile resets a used virtual file for another pass: cursors
// rewound, status back to Unused. The payload is retained.
func (s *Session) InitVirtualFile(name string) error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	id, err := DecodeVFileID(name)
	if err != nil {
		return s.report(err)
	}
	d, ok := s.byID[id]
	if !ok {
		return s.report(errors.NotAValidID(id, "virtual file names an unregistered object"))
	}
	d.Status = family.Unused
	d.resetCursors()
	d.nCols = 0
	return nil
}
