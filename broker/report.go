package broker

import (
	"go.uber.org/zap"

	"github.com/geokit/databroker/errors"
)

// report is the choke point every public entry funnels failures
// through. It records the code on the session and logs only when the
// code differs from the previously reported one, so a caller polling
// a failing operation does not flood the log.
func (s *Session) report(err error) error {
	if err == nil {
		return nil
	}
	code := errors.CodeOf(err)
	if code != s.lastCode {
		s.logger.Error("broker error",
			zap.Uint64("session", s.ID),
			zap.String("tag", s.Tag),
			zap.Int("code", int(code)),
			zap.String("name", code.String()),
			zap.Error(err))
		s.lastCode = code
	}
	return err
}
