package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wmstudio/pkg/codec"
)

// Rule selects how output file names are derived from source names.
type Rule int

const (
	KeepOriginal Rule = iota
	AddPrefix
	AddSuffix
)

// DefaultPrefix and DefaultSuffix are used when a rule needs one and none was
// given.
const (
	DefaultPrefix = "wm_"
	DefaultSuffix = "_watermarked"
)

func (r Rule) String() string {
	switch r {
	case KeepOriginal:
		return "original"
	case AddPrefix:
		return "prefix"
	case AddSuffix:
		return "suffix"
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

// ParseRule accepts original, prefix and suffix.
func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "original":
		return KeepOriginal, nil
	case "prefix":
		return AddPrefix, nil
	case "suffix":
		return AddSuffix, nil
	}
	return KeepOriginal, fmt.Errorf("%w: naming rule %q", ErrInvalidOptions, s)
}

// Naming is the output naming policy.
type Naming struct {
	Rule   Rule
	Prefix string
	Suffix string
}

// Name returns the output file name for source, with the extension of format.
func (n Naming) Name(source string, format codec.Format) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	switch n.Rule {
	case AddPrefix:
		p := n.Prefix
		if p == "" {
			p = DefaultPrefix
		}
		stem = p + stem
	case AddSuffix:
		s := n.Suffix
		if s == "" {
			s = DefaultSuffix
		}
		stem += s
	}
	return stem + format.Ext()
}

// OutputPath returns where source is written under opts.
func OutputPath(source string, opts Options) string {
	return filepath.Join(opts.OutputDir, opts.Naming.Name(source, opts.Format))
}

// Conflict is one output path that would clobber something.
type Conflict struct {
	Output  string
	Sources []string
	Reason  string
}

// ConflictError is returned by ExportAll when outputs collide and
// Options.Overwrite is not set. Nothing has been written.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		c := e.Conflicts[0]
		return fmt.Sprintf("output %s: %s", c.Output, c.Reason)
	}
	return fmt.Sprintf("%d output conflicts, first %s: %s", len(e.Conflicts), e.Conflicts[0].Output, e.Conflicts[0].Reason)
}

const (
	reasonOverwritesSource = "would overwrite a source image"
	reasonDuplicate        = "produced by more than one source"
	reasonExists           = "file already exists"
)

// Conflicts lists outputs that would overwrite a source image, collide with
// each other, or replace an existing file.
func Conflicts(sources []string, opts Options) []Conflict {
	bySource := make(map[string]bool, len(sources))
	for _, s := range sources {
		bySource[cleanAbs(s)] = true
	}
	byOutput := make(map[string][]string)
	var order []string
	for _, s := range sources {
		out := cleanAbs(OutputPath(s, opts))
		if _, seen := byOutput[out]; !seen {
			order = append(order, out)
		}
		byOutput[out] = append(byOutput[out], s)
	}

	var out []Conflict
	for _, o := range order {
		srcs := byOutput[o]
		switch {
		case bySource[o]:
			out = append(out, Conflict{Output: o, Sources: srcs, Reason: reasonOverwritesSource})
		case len(srcs) > 1:
			out = append(out, Conflict{Output: o, Sources: srcs, Reason: reasonDuplicate})
		default:
			if _, err := os.Stat(o); err == nil {
				out = append(out, Conflict{Output: o, Sources: srcs, Reason: reasonExists})
			}
		}
	}
	return out
}

// CollectSources expands directories (non-recursively) into the supported
// image files they contain and keeps plain files as given. Directory entries
// are sorted; duplicates are dropped.
func CollectSources(paths ...string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		key := cleanAbs(p)
		if !seen[key] {
			seen[key] = true
			out = append(out, p)
		}
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && codec.IsSupported(e.Name()) {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			add(filepath.Join(p, n))
		}
	}
	return out, nil
}

func cleanAbs(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
