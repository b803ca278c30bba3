// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package group

import (
	"fmt"
	"strings"

	"github.com/pdiddy/probsplit/pkg/types"
)

// autoPrefix is the stem prefix for AutoNumbered naming.
const autoPrefix = "problem_"

// FileName returns the output filename for g. It depends only on the
// group's number and, for multi-block groups, its first and last block
// numbers: problem_003.docx, or problem_002_004-006.docx.
func FileName(g types.Group, rule types.NamingRule, ext string) string {
	prefix := autoPrefix
	if rule.Kind == types.NamingPrefix {
		prefix = sanitize(rule.Prefix)
	}
	stem := fmt.Sprintf("%s%03d", prefix, g.Number)
	if g.Size() > 1 {
		stem = fmt.Sprintf("%s_%03d-%03d", stem, g.First(), g.Last())
	}
	return stem + ext
}

// sanitize replaces characters that are unsafe in filenames.
func sanitize(prefix string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(prefix))
}
