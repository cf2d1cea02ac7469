package table

import "strings"

// NormalizeColumnName folds a header to the canonical form used for matching:
// lower case, trimmed, with inner spaces and underscores removed. The extracts
// drift between "CEDULA NUMERO", "cedula_numero" and "CedulaNumero" from one
// month to the next.
func NormalizeColumnName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// ResolveColumn finds the actual column matching a wanted name. It tries an
// exact match first, then a normalized match, then a normalized substring
// match in either direction. Returns "" when nothing matches.
func (t *Table) ResolveColumn(want string) string {
	if t.HasColumn(want) {
		return want
	}
	nw := NormalizeColumnName(want)
	for _, c := range t.cols {
		if NormalizeColumnName(c) == nw {
			return c
		}
	}
	for _, c := range t.cols {
		nc := NormalizeColumnName(c)
		if nc == "" || nw == "" {
			continue
		}
		if strings.Contains(nc, nw) || strings.Contains(nw, nc) {
			return c
		}
	}
	return ""
}

// ResolveAndRename resolves each wanted column and renames the match to the
// wanted name. Returns the wanted names that could not be resolved.
func (t *Table) ResolveAndRename(wanted ...string) []string {
	var missing []string
	for _, w := range wanted {
		got := t.ResolveColumn(w)
		if got == "" {
			missing = append(missing, w)
			continue
		}
		if got != w {
			t.Rename(got, w)
		}
	}
	return missing
}
