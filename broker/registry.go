package broker

import (
	"io"
	"os"
	"reflect"

	"go.uber.org/zap"

	"github.com/geokit/databroker/codec"
	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/errors"
	"github.com/geokit/databroker/family"
)

// maxID bounds the resource ID space: virtual filenames carry the ID
// as a 6-digit zero-padded decimal field.
const maxID = 999999

// InputKind filters validation between primary module input and
// option-argument input.
type InputKind uint8

const (
	AnyInput InputKind = iota
	ModuleInputOnly
	OptionInputOnly
)

// Register adds one resource to the session's object table and returns
// its ID.
//
// The resource argument depends on the method: a filename for
// MethodFile, an open reader/writer for MethodStream, an *os.File or
// integer descriptor for MethodFDesc, and a container for the
// in-memory methods (nil for OUT, meaning the broker allocates a fresh
// growable container on first write).
//
// A filename that encodes a virtual file resolves to the
// already-registered descriptor instead of creating a new one.
// Re-registering an equivalent resource returns the existing ID
// unchanged unless the Reset modifier asks for a fresh pass.
func (s *Session) Register(f family.Family, method family.Method, geom family.Geometry, dir family.Direction, resource any) (int, error) {
	if s.destroyed {
		return -1, s.report(errors.NoSession())
	}

	if name, ok := resource.(string); ok && IsVFile(name) {
		id, err := DecodeVFileID(name)
		if err != nil {
			return -1, s.report(err)
		}
		if _, ok := s.byID[id]; !ok {
			return -1, s.report(errors.NotAValidID(id, "virtual file names an unregistered object"))
		}
		return id, nil
	}

	if !f.Valid() {
		return -1, s.report(errors.New(errors.PhaseRegister, errors.CodeInvalidFamily).
			Detail("family %s", f).Build())
	}
	if !method.ValidBase() {
		return -1, s.report(errors.BadMethod("unknown access method"))
	}
	if dir != family.In && dir != family.Out {
		return -1, s.report(errors.BadDirection("direction must be In or Out"))
	}
	if !family.Compatible(f, geom) {
		return -1, s.report(errors.InvalidGeometry(f.String(), geom.String()))
	}

	// The declared kind: a via modifier masquerades a matrix or vector
	// as the requested tabular family; a shelved family from the
	// virtual-file layer defers the resolution one call.
	actual := f
	switch {
	case method&family.ViaMatrix != 0:
		actual = family.Matrix
	case method&family.ViaVector != 0:
		actual = family.Vector
	case s.shelf != family.NotSet:
		actual = s.shelf
		s.shelf = family.NotSet
	}

	// Idempotent registration: an equivalent live descriptor absorbs
	// the call.
	if resource != nil {
		if d := s.findEquivalent(actual, geom, dir, resource); d != nil {
			if method&family.Reset != 0 {
				d.Status = family.Unused
				d.resetCursors()
			}
			return d.ID, nil
		}
	}

	if s.nextID > maxID {
		return -1, s.report(errors.IDExhausted())
	}

	d := &Descriptor{
		Family:       f,
		ActualFamily: actual,
		Geometry:     geom,
		Direction:    dir,
		Method:       method &^ family.Reset,
		Status:       family.Unused,
		AllocLevel:   s.level,
		Selected:     true,
	}
	d.resetCursors()

	switch method.Base() {
	case family.MethodFile:
		name, ok := resource.(string)
		if !ok || name == "" {
			return -1, s.report(errors.BadMethod("file method requires a filename"))
		}
		if dir == family.In && !codec.Remote(name) {
			if err := checkReadable(name); err != nil {
				return -1, s.report(err)
			}
		}
		d.Filename = name

	case family.MethodStream:
		if err := checkStream(resource, dir); err != nil {
			return -1, s.report(err)
		}
		d.Resource = resource

	case family.MethodFDesc:
		file, err := adoptFDesc(resource)
		if err != nil {
			return -1, s.report(err)
		}
		d.Resource = file

	case family.MethodDuplicate, family.MethodReference:
		if resource == nil {
			if dir == family.In {
				return -1, s.report(errors.PtrIsNull(0, "in-memory input requires a container"))
			}
			// Placeholder output container, filled in before pickup.
			d.Messenger = true
		} else {
			if _, ok := resource.(container.Owned); !ok {
				return -1, s.report(errors.BadMethod("in-memory method requires a container payload"))
			}
			d.Resource = resource
			d.AllocMode = container.AllocExternally
		}
	}

	d.ID = s.nextID
	s.nextID++
	s.objects = append(s.objects, d)
	s.byID[d.ID] = d

	s.logger.Debug("registered resource",
		zap.Uint64("session", s.ID),
		zap.Int("id", d.ID),
		zap.String("family", d.Family.String()),
		zap.String("method", d.Method.String()),
		zap.String("direction", d.Direction.String()))
	return d.ID, nil
}

// ValidateID looks an ID up and enforces the family, direction,
// consumption and input-kind constraints. Matrix and vector
// descriptors registered with a via modifier satisfy a Dataset request;
// the match promotes the descriptor's presented family while
// ActualFamily keeps the declared kind.
func (s *Session) ValidateID(f family.Family, id int, dir family.Direction, kind InputKind) (*Descriptor, error) {
	if s.destroyed {
		return nil, s.report(errors.NoSession())
	}
	d, ok := s.byID[id]
	if !ok {
		return nil, s.report(errors.NotAValidID(id, "unknown object"))
	}

	if f != family.NotSet && d.Family != f {
		masquerade := f == family.Dataset &&
			(d.Family == family.Matrix || d.Family == family.Vector) &&
			d.Method.Via()
		if !masquerade {
			return nil, s.report(errors.NotAValidID(id, "family mismatch"))
		}
		d.Family = f
	}
	if d.Direction != dir {
		return nil, s.report(errors.NotAValidID(id, "direction mismatch"))
	}
	if dir == family.In && d.Status == family.Used {
		return nil, s.report(errors.NotAValidID(id, "input already consumed"))
	}
	switch kind {
	case ModuleInputOnly:
		if !d.ModuleInput {
			return nil, s.report(errors.NotAValidID(id, "not a module input"))
		}
	case OptionInputOnly:
		if d.ModuleInput {
			return nil, s.report(errors.NotAValidID(id, "not an option input"))
		}
	}
	return d, nil
}

// Unregister removes a resource from the object table. IDs of the
// remaining resources are unchanged.
func (s *Session) Unregister(id int) error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	d, ok := s.byID[id]
	if !ok {
		return s.report(errors.NotAValidID(id, "unknown object"))
	}
	d.closeHandles()
	d.Filename = ""
	delete(s.byID, id)
	for i, o := range s.objects {
		if o == d {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			break
		}
	}
	return nil
}

// findEquivalent scans for a live descriptor with the same declared
// family, geometry, direction and physical resource.
func (s *Session) findEquivalent(actual family.Family, geom family.Geometry, dir family.Direction, resource any) *Descriptor {
	name, isName := resource.(string)
	if !isName && !reflect.TypeOf(resource).Comparable() {
		// A slice- or func-typed resource can never equal a stored one;
		// comparing would panic. Method validation rejects it later.
		return nil
	}
	for _, d := range s.objects {
		if d.ActualFamily != actual || d.Geometry != geom || d.Direction != dir {
			continue
		}
		if isName {
			if d.Filename == name {
				return d
			}
			continue
		}
		if d.Resource == resource {
			return d
		}
	}
	return nil
}

func checkReadable(name string) error {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound(name)
		}
		return errors.OpenFailed(name, err)
	}
	f, err := os.Open(name)
	if err != nil {
		if os.IsPermission(err) {
			return errors.BadPermission(name)
		}
		return errors.OpenFailed(name, err)
	}
	f.Close()
	return nil
}

func checkStream(resource any, dir family.Direction) error {
	if dir == family.In {
		if _, ok := resource.(io.Reader); !ok {
			return errors.BadMethod("stream input requires an io.Reader")
		}
		return nil
	}
	if _, ok := resource.(io.Writer); !ok {
		return errors.BadMethod("stream output requires an io.Writer")
	}
	return nil
}

func adoptFDesc(resource any) (*os.File, error) {
	switch v := resource.(type) {
	case *os.File:
		return v, nil
	case int:
		return os.NewFile(uintptr(v), "fdesc"), nil
	case uintptr:
		return os.NewFile(v, "fdesc"), nil
	default:
		return nil, errors.BadMethod("fdesc method requires an *os.File or raw descriptor")
	}
}
