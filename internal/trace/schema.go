package trace

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

// Schema validation error codes (E200-E209).
const (
	// ErrCodeUnreadable means the file could not be read.
	ErrCodeUnreadable = "E200"

	// ErrCodeNotJSON means the file is not well-formed JSON.
	ErrCodeNotJSON = "E201"

	// ErrCodeSchema means the document violates the trace-file schema.
	ErrCodeSchema = "E202"
)

// ValidationError is one schema violation with a stable code for
// programmatic handling and a position when CUE can attribute one.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Pos     string `json:"pos,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Pos != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Pos, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// fileSchema constrains trace files before they reach the extractor. The
// extractor itself tolerates malformed spans (it degrades to time-range
// contribution), so validation is a lint surface for trace producers, not
// a load-time gate.
const fileSchema = `
#Span: {
	id:         string & !=""
	name:       string
	start_time: string
	end_time:   string
	status?:    "ok" | "error"
	attributes?: {[string]: string}
	children?: [...#Span]
}

trace_id?: string & !=""
spans: [...#Span]
`

// ValidateFile checks a trace file against the schema and returns every
// violation found (it does not fail fast). A nil slice means the file is
// valid.
func ValidateFile(path string) []ValidationError {
	data, err := os.ReadFile(path)
	if err != nil {
		return []ValidationError{{
			Code:    ErrCodeUnreadable,
			Message: fmt.Sprintf("read trace file: %v", err),
		}}
	}
	return ValidateBytes(path, data)
}

// ValidateBytes checks an in-memory trace document against the schema.
// The path is used only for error positions.
func ValidateBytes(path string, data []byte) []ValidationError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(fileSchema)
	if err := schema.Err(); err != nil {
		// The schema is a compile-time constant; failing to compile it
		// is a programming error, not a user input problem.
		panic(fmt.Sprintf("trace schema does not compile: %v", err))
	}

	expr, err := cuejson.Extract(path, data)
	if err != nil {
		return []ValidationError{{
			Code:    ErrCodeNotJSON,
			Message: fmt.Sprintf("parse JSON: %v", err),
		}}
	}

	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return []ValidationError{{
			Code:    ErrCodeNotJSON,
			Message: fmt.Sprintf("build document: %v", err),
		}}
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var out []ValidationError
		for _, e := range cueerrors.Errors(err) {
			ve := ValidationError{
				Code:    ErrCodeSchema,
				Message: e.Error(),
			}
			if pos := e.Position(); pos.IsValid() {
				ve.Pos = pos.String()
			}
			out = append(out, ve)
		}
		return out
	}

	return nil
}
