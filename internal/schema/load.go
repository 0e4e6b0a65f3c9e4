package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadDir compiles every CUE file under dir into a validated Registry.
// Descriptors live under the top-level "table" struct:
//
//	table: doctors: {
//		primary_key: "doctor_id"
//		natural_key: "username"
//		depends: {title_id: "titles", dept_id: "departments"}
//	}
func LoadDir(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("schema: table directory not found: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("schema: accessing table directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema: not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("schema: no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("schema: loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := value.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, fmt.Errorf("schema: no table definitions in %s", dir)
	}
	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tables []Table
	for iter.Next() {
		tab, err := CompileTable(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("schema: table %q: %w", iter.Label(), err)
		}
		tables = append(tables, *tab)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("schema: no tables defined in %s", dir)
	}

	return NewRegistry(tables...)
}
