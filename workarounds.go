package x11c

import (
	"os"

	"gopkg.in/yaml.v3"
)

// workaroundRule describes one entry in the extensible wire-workaround
// table. Opcode-only rules (TriggerWord == nil) always match; rules with
// a TriggerWord only match when that 4-byte little-endian word at
// TriggerOffset in the encoded request equals the configured value —
// generalizing spec.md §4.4 step 6's hardcoded GLX check so additional
// per-extension quirks can be supplied without a code change.
type workaroundRule struct {
	Extension     string  `yaml:"extension"`
	Opcode        uint8   `yaml:"opcode"`
	TriggerOffset int     `yaml:"trigger_offset,omitempty"`
	TriggerWord   *uint32 `yaml:"trigger_word,omitempty"`
	Kind          string  `yaml:"kind"`
}

// WorkaroundTable resolves a (extension, opcode, encoded request) triple
// to a Workaround. It always contains the built-in GLX rule; additional
// rules can be merged in from a YAML document via LoadWorkaroundTable.
type WorkaroundTable struct {
	rules []workaroundRule
}

func defaultGlxWord() *uint32 {
	v := uint32(glxFBConfigsMagic)
	return &v
}

// NewWorkaroundTable returns a table containing only the built-in GLX
// rule (spec.md §4.4 step 6, §6 "GLX workaround marker").
func NewWorkaroundTable() *WorkaroundTable {
	return &WorkaroundTable{
		rules: []workaroundRule{
			{Extension: glxExtensionName, Opcode: glxVendorPrivateOpcode, Kind: "GlxFbconfigBug"},
			{
				Extension:     glxExtensionName,
				Opcode:        glxGetFBConfigsOpcode,
				TriggerOffset: 32,
				TriggerWord:   defaultGlxWord(),
				Kind:          "GlxFbconfigBug",
			},
		},
	}
}

// LoadWorkaroundTable reads additional rules from a YAML file and merges
// them with the built-in GLX rules. The YAML document is a list of rule
// objects matching workaroundRule's tags.
func LoadWorkaroundTable(path string) (*WorkaroundTable, error) {
	t := NewWorkaroundTable()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapIO(err, "reading workaround table")
	}

	var extra []workaroundRule
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, err
	}
	t.rules = append(t.rules, extra...)
	return t, nil
}

// Resolve returns the Workaround that applies to a request about to be
// encoded, per spec.md §4.4 step 6.
func (t *WorkaroundTable) Resolve(extension string, opcode uint8, encoded []byte) Workaround {
	if t == nil {
		return WorkaroundNone
	}
	for _, r := range t.rules {
		if r.Extension != extension || r.Opcode != opcode {
			continue
		}
		if r.TriggerWord != nil {
			if r.TriggerOffset+4 > len(encoded) {
				continue
			}
			if byteOrder.Uint32(encoded[r.TriggerOffset:r.TriggerOffset+4]) != *r.TriggerWord {
				continue
			}
		}
		if r.Kind == "GlxFbconfigBug" {
			return WorkaroundGlxFBConfigBug
		}
	}
	return WorkaroundNone
}
