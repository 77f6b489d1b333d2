package policy

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// LoadFile reads a CUE policy file and decodes it into a Policy.
// The file must define a top-level `policy` struct, e.g.:
//
//	policy: {
//		geo_fences: ashwagandha: [{min_lat: 23.0, max_lat: 30.5, min_lon: 69.0, max_lon: 76.5}]
//		seasons: ashwagandha: [10, 11, 12, 1, 2, 3]
//		daily_limit_kg: ashwagandha: 50.0
//		certified_labs: ["lab-ayush-01"]
//	}
//
// CUE gives the config file constraint checking and sane error
// positions; the decoded value is additionally run through
// Policy.Validate before being returned.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	policyVal := v.LookupPath(cue.ParsePath("policy"))
	if !policyVal.Exists() {
		return nil, &LoadError{
			Field:   "policy",
			Message: "top-level policy struct is required",
			Pos:     v.Pos(),
		}
	}

	p := &Policy{}
	if err := policyVal.Decode(p); err != nil {
		return nil, formatCUEError(err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadError is a policy config error with source position.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "policy",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
