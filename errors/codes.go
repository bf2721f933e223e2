package errors

// Code is the broker's fixed error enumeration. Codes are stable
// integers so host bindings (C, Python, MATLAB, Julia) can match on
// them; the parallel codeNames table supplies diagnostic strings.
type Code int

const (
	CodeOK Code = iota

	// Session errors
	CodeNoSession
	CodeSessionExists

	// Registration errors
	CodeInvalidFamily
	CodeInvalidGeometry
	CodeIDExhausted

	// Lookup errors
	CodeNotAValidID
	CodeWrongDirection
	CodeNotFound

	// Ownership errors
	CodeFreeWrongLevel
	CodePtrIsNull
	CodePtrNotNull

	// Stream errors
	CodeFileNotFound
	CodeBadPermission
	CodeOpenFailed
	CodeCreateFailed
	CodeSeekFailed
	CodeReadOnce
	CodeWriteOnce
	CodeRecordMismatch
	CodeDimMismatch
	CodeNoInput
	CodeNoOutput
	CodeAccessNotEnabled

	// Mode errors
	CodeInvalidMode
	CodeInvalidMethod
	CodeInvalidDirection

	// Converter errors
	CodeNoConverter
	CodeConvertFailed

	// CodeUnknown is the sentinel for non-broker errors.
	CodeUnknown
)

// codeNames parallels the Code enumeration. Keep the two in sync.
var codeNames = [...]string{
	CodeOK:               "ok",
	CodeNoSession:        "no_session",
	CodeSessionExists:    "session_exists",
	CodeInvalidFamily:    "invalid_family",
	CodeInvalidGeometry:  "invalid_geometry",
	CodeIDExhausted:      "id_exhausted",
	CodeNotAValidID:      "not_a_valid_id",
	CodeWrongDirection:   "wrong_direction",
	CodeNotFound:         "not_found",
	CodeFreeWrongLevel:   "free_wrong_level",
	CodePtrIsNull:        "pointer_is_null",
	CodePtrNotNull:       "pointer_not_null",
	CodeFileNotFound:     "file_not_found",
	CodeBadPermission:    "bad_permission",
	CodeOpenFailed:       "open_failed",
	CodeCreateFailed:     "create_failed",
	CodeSeekFailed:       "seek_failed",
	CodeReadOnce:         "read_once",
	CodeWriteOnce:        "write_once",
	CodeRecordMismatch:   "record_mismatch",
	CodeDimMismatch:      "dimension_mismatch",
	CodeNoInput:          "no_input",
	CodeNoOutput:         "no_output",
	CodeAccessNotEnabled: "access_not_enabled",
	CodeInvalidMode:      "invalid_mode",
	CodeInvalidMethod:    "invalid_method",
	CodeInvalidDirection: "invalid_direction",
	CodeNoConverter:      "no_converter",
	CodeConvertFailed:    "convert_failed",
	CodeUnknown:          "unknown",
}

// String returns the diagnostic name for the code.
func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return "unknown"
	}
	return codeNames[c]
}
