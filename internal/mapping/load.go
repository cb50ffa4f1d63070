package mapping

import (
	"encoding/json"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/siddontang/go/ioutil2"
)

type ruleEntry struct {
	SourceSchema string `json:"source_schema"`
	TargetSchema string `json:"target_schema"`
	SourceTable  string `json:"source_table,omitempty"`
	TargetTable  string `json:"target_table,omitempty"`
}

type mappingFile struct {
	Mappings []ruleEntry `json:"mappings"`
}

// Problem describes a mapping entry rejected during load.
type Problem struct {
	Index  int
	Reason string
}

// Load reads a mapping table from a JSON file shaped as
// {"mappings": [{"source_schema": ..., "target_schema": ...}, ...]}.
// Entries missing a required field are skipped and reported through the
// problem list so the caller can log them; the remaining rules keep their
// file order.
func Load(path string) (Rules, []Problem, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var mf mappingFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, nil, errors.Wrapf(err, "invalid mapping file: %s", path)
	}

	rules := make(Rules, 0, len(mf.Mappings))
	var problems []Problem
	for i, e := range mf.Mappings {
		switch {
		case e.SourceSchema == "":
			problems = append(problems, Problem{Index: i, Reason: "missing source_schema"})
		case e.TargetSchema == "":
			problems = append(problems, Problem{Index: i, Reason: "missing target_schema"})
		default:
			rules = append(rules, Rule{
				SourceSchema: e.SourceSchema,
				TargetSchema: e.TargetSchema,
				SourceTable:  e.SourceTable,
				TargetTable:  e.TargetTable,
			})
		}
	}

	return rules, problems, nil
}

// Save writes the rules back in the same JSON layout, atomically.
func Save(path string, rules Rules) error {
	mf := mappingFile{
		Mappings: make([]ruleEntry, 0, len(rules)),
	}
	for _, r := range rules {
		mf.Mappings = append(mf.Mappings, ruleEntry{
			SourceSchema: r.SourceSchema,
			TargetSchema: r.TargetSchema,
			SourceTable:  r.SourceTable,
			TargetTable:  r.TargetTable,
		})
	}

	data, err := json.MarshalIndent(&mf, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	return ioutil2.WriteFileAtomic(path, data, 0644)
}
