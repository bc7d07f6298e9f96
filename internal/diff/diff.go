// Package diff renders unified diffs of metadata snapshots.
package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/mgutz/ansi"

	"github.com/hasura/graphql-engine/console/internal/errors"
)

// Snapshots writes the diff of two metadata documents to w. Both are JSON
// and are compared in their YAML form, which keeps keys sorted. It returns
// the number of changed lines.
func Snapshots(before, after []byte, w io.Writer, disableColor bool) (int, error) {
	var op errors.Op = "diff.Snapshots"
	from, err := normalize(before)
	if err != nil {
		return -1, errors.E(op, errors.KindBadInput, fmt.Errorf("reading current metadata: %w", err))
	}
	to, err := normalize(after)
	if err != nil {
		return -1, errors.E(op, errors.KindBadInput, fmt.Errorf("reading new metadata: %w", err))
	}
	return Unified(from, to, "server", "local", w, disableColor), nil
}

func normalize(doc []byte) (string, error) {
	if len(strings.TrimSpace(string(doc))) == 0 {
		return "", nil
	}
	b, err := yaml.JSONToYAML(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unified writes the changed and hunk header lines of the diff between
// before and after, coloured unless disableColor is set. It returns the
// number of changed lines.
func Unified(before, after, from, to string, w io.Writer, disableColor bool) int {
	edits := myers.ComputeEdits(span.URIFromPath(from), before, after)
	text := fmt.Sprint(gotextdiff.ToUnified(from, to, before, edits))

	lines := strings.Split(text, "\n")
	if len(lines) <= 2 {
		return 0
	}
	changed := 0
	for _, line := range lines[2:] {
		if line == "" {
			continue
		}
		switch line[0] {
		case '-':
			changed++
			fmt.Fprintln(w, Line(line, "red", disableColor))
		case '+':
			changed++
			fmt.Fprintln(w, Line(line, "green", disableColor))
		case '@':
			fmt.Fprintln(w, Line(line, "cyan", disableColor))
		}
	}
	return changed
}

func Line(line, color string, disableColor bool) string {
	if disableColor {
		return line
	}
	return ansi.Color(line, color)
}
