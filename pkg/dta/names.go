package dta

import (
	"fmt"
	"strconv"
)

// Words that cannot be used as variable names in the format.
var reservedWords = map[string]bool{
	"aggregate": true, "array": true, "boolean": true, "break": true,
	"byte": true, "case": true, "catch": true, "class": true,
	"colvector": true, "complex": true, "const": true, "continue": true,
	"default": true, "delegate": true, "delete": true, "do": true,
	"double": true, "else": true, "eltypedef": true, "end": true,
	"enum": true, "explicit": true, "export": true, "external": true,
	"float": true, "for": true, "friend": true, "function": true,
	"global": true, "goto": true, "if": true, "inline": true,
	"int": true, "local": true, "long": true, "NULL": true,
	"pragma": true, "protected": true, "quad": true, "rowvector": true,
	"short": true, "typedef": true, "typename": true, "virtual": true,
}

func legalNameByte(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '_'
}

// sanitizeNames rewrites column names into the format-legal charset:
// illegal bytes become underscores, reserved words and names starting
// with a digit gain an underscore prefix, names are truncated to 32
// bytes, and collisions between rewritten names are disambiguated with
// an incrementing counter. Returns the new names and a human-readable
// rename log.
func sanitizeNames(names []string) ([]string, []string, error) {
	out := make([]string, len(names))
	copy(out, names)
	var renames []string

	duplicateID := 0
	for j, original := range out {
		if original == "" {
			return nil, nil, fmt.Errorf("column %d has an empty name", j)
		}
		name := []byte(original)
		for i, c := range name {
			if !legalNameByte(c) {
				name[i] = '_'
			}
		}
		fixed := string(name)
		if reservedWords[fixed] {
			fixed = "_" + fixed
		}
		if fixed[0] >= '0' && fixed[0] <= '9' {
			fixed = "_" + fixed
		}
		if len(fixed) > 32 {
			fixed = fixed[:32]
		}

		if fixed != original {
			for countName(out, fixed) > 0 {
				fixed = "_" + strconv.Itoa(duplicateID) + fixed
				if len(fixed) > 32 {
					fixed = fixed[:32]
				}
				duplicateID++
			}
			renames = append(renames, fmt.Sprintf("%s   ->   %s", original, fixed))
		}
		out[j] = fixed
	}
	return out, renames, nil
}

func countName(names []string, name string) int {
	n := 0
	for _, candidate := range names {
		if candidate == name {
			n++
		}
	}
	return n
}
