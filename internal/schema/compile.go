package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileTable parses a CUE value into a Table descriptor.
//
// The CUE value is the table struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`table: doctors: {primary_key: "doctor_id"}`)
//	tab, err := CompileTable(v.LookupPath(cue.ParsePath("table.doctors")))
func CompileTable(v cue.Value) (*Table, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tab := &Table{}

	// Table name comes from the struct label (the path selector).
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		tab.Name = labels[len(labels)-1].String()
	}

	pkVal := v.LookupPath(cue.ParsePath("primary_key"))
	if !pkVal.Exists() {
		return nil, &CompileError{
			Field:   "primary_key",
			Message: "primary_key is required",
			Pos:     v.Pos(),
		}
	}
	pk, err := pkVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	tab.PrimaryKey = pk

	if nkVal := v.LookupPath(cue.ParsePath("natural_key")); nkVal.Exists() {
		nk, err := nkVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		tab.NaturalKey = nk
	}

	tab.Volatile, err = compileStringList(v, "volatile")
	if err != nil {
		return nil, err
	}
	tab.DateFields, err = compileStringList(v, "date_fields")
	if err != nil {
		return nil, err
	}

	depsVal := v.LookupPath(cue.ParsePath("depends"))
	if depsVal.Exists() {
		iter, err := depsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			target, err := iter.Value().String()
			if err != nil {
				return nil, &CompileError{
					Field:   "depends." + iter.Label(),
					Message: "referenced table must be a string",
					Pos:     iter.Value().Pos(),
				}
			}
			tab.Dependencies = append(tab.Dependencies, Dependency{
				Field: iter.Label(),
				Table: target,
			})
		}
	}

	return tab, nil
}

// compileStringList parses an optional list-of-strings field.
func compileStringList(v cue.Value, path string) ([]string, error) {
	listVal := v.LookupPath(cue.ParsePath(path))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   path,
				Message: "entries must be strings",
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError is a descriptor compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
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

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
