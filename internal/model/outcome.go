package model

// ConflictKind classifies why a request is judged non-executable.
type ConflictKind string

const (
	ConflictMissingRequiredField ConflictKind = "MISSING_REQUIRED_FIELD"
	ConflictMissingAttachment    ConflictKind = "MISSING_ATTACHMENT"
	ConflictAttachmentWrongType  ConflictKind = "ATTACHMENT_WRONG_TYPE"
	ConflictAttachmentTooLarge   ConflictKind = "ATTACHMENT_TOO_LARGE"
	ConflictUniqueInBatch        ConflictKind = "UNIQUE_CONFLICT_IN_BATCH"
	ConflictUniqueInStore        ConflictKind = "UNIQUE_CONFLICT_IN_STORE"
	ConflictMissingPrimaryKey    ConflictKind = "MISSING_PRIMARY_KEY"
	ConflictRecordNotFound       ConflictKind = "RECORD_NOT_FOUND"
	ConflictLookupError          ConflictKind = "LOOKUP_ERROR"
)

// ConflictKinds lists every kind in declaration order.
var ConflictKinds = []ConflictKind{
	ConflictMissingRequiredField,
	ConflictMissingAttachment,
	ConflictAttachmentWrongType,
	ConflictAttachmentTooLarge,
	ConflictUniqueInBatch,
	ConflictUniqueInStore,
	ConflictMissingPrimaryKey,
	ConflictRecordNotFound,
	ConflictLookupError,
}

// Conflict is one structured reason a request would fail.
type Conflict struct {
	Kind    ConflictKind `json:"kind"`
	Field   string       `json:"field,omitempty"`
	Value   any          `json:"value,omitempty"`
	Message string       `json:"message"`
}

// ResultCodeException is recorded when calling the backend failed outright.
const ResultCodeException = "EXCEPTION"

// Execution is the standard-mode part of an outcome.
type Execution struct {
	OK         bool           `json:"ok"`
	ResultCode any            `json:"result_code"`
	Response   map[string]any `json:"response,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Verdict is the strict-mode part of an outcome.
type Verdict struct {
	Executable bool       `json:"executable"`
	Conflicts  []Conflict `json:"conflicts"`
	Note       string     `json:"note,omitempty"`
}

// Outcome reports what happened to one request. Exactly one of Execution and
// Verdict is set, depending on the batch mode.
type Outcome struct {
	Index    int            `json:"index"`
	Entity   string         `json:"entity"`
	Action   string         `json:"action"`
	SentData map[string]any `json:"sent_data"`

	*Execution
	*Verdict
}

// Passed reports whether the request succeeded (standard) or is predicted to
// succeed (strict).
func (o Outcome) Passed() bool {
	switch {
	case o.Execution != nil:
		return o.Execution.OK
	case o.Verdict != nil:
		return o.Verdict.Executable
	default:
		return false
	}
}

// Tally counts passed and failed outcomes.
func Tally(outcomes []Outcome) (passed, failed int) {
	for _, o := range outcomes {
		if o.Passed() {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// AllPassed reports whether every outcome passed. An empty list passes.
func AllPassed(outcomes []Outcome) bool {
	_, failed := Tally(outcomes)
	return failed == 0
}
