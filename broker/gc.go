package broker

import (
	"go.uber.org/zap"

	"github.com/geokit/databroker/container"
	"github.com/geokit/databroker/errors"
)

// AllLevels sweeps the whole session regardless of nesting depth.
const AllLevels = -1

// Sweep frees every internally-allocated payload owned by the given
// nesting level and removes all of that level's descriptors from the
// object table. It returns the number of payloads freed.
//
// Descriptors whose payload was handed elsewhere (NoLongerOwner) only
// have their pointers cleared. After a payload is freed, the same raw
// pointer is cleared from every other descriptor that references it,
// so a shared pointer is never freed twice.
func (s *Session) Sweep(level int) int {
	freed := 0
	for _, d := range s.objects {
		if level != AllLevels && d.AllocLevel != level {
			continue
		}

		if d.NoLongerOwner {
			d.Data = nil
			d.Resource = nil
			continue
		}

		payload := d.payload()
		if payload != nil && d.AllocMode == container.AllocInternally {
			s.destroyPayload(d, payload)
			freed++
			for _, o := range s.objects {
				if o == d {
					continue
				}
				if o.Data == payload {
					o.Data = nil
				}
				if o.Resource == payload {
					o.Resource = nil
				}
			}
			d.Data = nil
			d.Resource = nil
		}
	}

	// Every descriptor at the level goes, payload or not.
	kept := s.objects[:0]
	removed := 0
	for _, d := range s.objects {
		if level != AllLevels && d.AllocLevel != level {
			kept = append(kept, d)
			continue
		}
		d.closeHandles()
		delete(s.byID, d.ID)
		removed++
	}
	s.objects = kept

	if freed > 0 || removed > 0 {
		s.logger.Debug("gc sweep",
			zap.Uint64("session", s.ID),
			zap.Int("level", level),
			zap.Int("freed", freed),
			zap.Int("removed", removed))
	}
	return freed
}

// destroyPayload invokes the family converter's destructor when one is
// registered; an unregistered family simply loses its reference.
func (s *Session) destroyPayload(d *Descriptor, payload any) {
	if conv, ok := s.converters[d.ActualFamily]; ok {
		conv.Destroy(payload)
	}
}

// DestroyData explicitly frees one broker-allocated payload ahead of
// its level's sweep. Only the nesting level that owns the payload may
// free it; caller-allocated memory is never touched.
func (s *Session) DestroyData(payload any) error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	if payload == nil {
		return s.report(errors.PtrIsNull(0, "nothing to destroy"))
	}
	for _, d := range s.objects {
		if d.Data != payload && d.Resource != payload {
			continue
		}
		if d.NoLongerOwner {
			continue
		}
		if d.AllocMode != container.AllocInternally {
			return s.report(errors.PtrNotNull(d.ID, "payload is caller-allocated"))
		}
		if d.AllocLevel != s.level {
			return s.report(errors.WrongLevel(d.ID, d.AllocLevel, s.level))
		}
		s.destroyPayload(d, payload)
		for _, o := range s.objects {
			if o.Data == payload {
				o.Data = nil
			}
			if o.Resource == payload {
				o.Resource = nil
			}
		}
		s.logger.Debug("payload destroyed",
			zap.Uint64("session", s.ID),
			zap.Int("id", d.ID),
			zap.Int("level", s.level))
		return nil
	}
	return s.report(errors.NotAValidID(0, "payload is not registered"))
}

// TransferOwnership hands the payload of src to dst, so a module's
// output can outlive the module. The destination's nesting level is
// written into the payload's bookkeeping and the source is marked
// NoLongerOwner: both descriptors may reference the payload afterward,
// but only the destination is ever eligible to free it.
func (s *Session) TransferOwnership(srcID, dstID int) error {
	if s.destroyed {
		return s.report(errors.NoSession())
	}
	src, ok := s.byID[srcID]
	if !ok {
		return s.report(errors.NotAValidID(srcID, "unknown source object"))
	}
	dst, ok := s.byID[dstID]
	if !ok {
		return s.report(errors.NotAValidID(dstID, "unknown destination object"))
	}

	payload := src.payload()
	if payload == nil {
		return s.report(errors.PtrIsNull(srcID, "source has no payload to hand over"))
	}
	if dst.payload() != nil {
		return s.report(errors.PtrNotNull(dstID, "destination already holds a payload"))
	}
	if src.NoLongerOwner {
		return s.report(errors.PtrIsNull(srcID, "source no longer owns its payload"))
	}

	dst.Data = payload
	dst.AllocMode = src.AllocMode
	if owned, ok := payload.(container.Owned); ok {
		owned.Ownership().Level = dst.AllocLevel
	}
	src.NoLongerOwner = true

	s.logger.Debug("ownership transferred",
		zap.Uint64("session", s.ID),
		zap.Int("from", srcID),
		zap.Int("to", dstID),
		zap.Int("level", dst.AllocLevel))
	return nil
}
