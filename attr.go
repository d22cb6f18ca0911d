package sqlsnap

import (
	"regexp"
	"strconv"
	"strings"
)

// Values end at whitespace or '*' so that block comments can close right
// after them. A @cache-deps list may have blanks after its commas.
var attrRegexp = regexp.MustCompile(`@cache-(ttl|max-rows|salt|deps)[ \t]+([^\s,*]+(?:[ \t]*,[ \t]*[^\s,*]+)*)`)

var (
	emptyBlockRegexp = regexp.MustCompile(`[ \t]*/\*\s*\*/`)
	emptyLineRegexp  = regexp.MustCompile(`(?m)[ \t]*--[ \t]*$`)
	trailingRegexp   = regexp.MustCompile(`(?m)[ \t]+$`)
	blankLineRegexp  = regexp.MustCompile(`(?m)^\n`)
)

type attributes struct {
	ttl     int
	maxRows int
	salt    string
	deps    []string // nil unless @cache-deps is present
}

// getAttrs returns nil unless both @cache-ttl and @cache-max-rows are
// present with non-negative integer values.
func getAttrs(query string) *attributes {
	matches := attrRegexp.FindAllStringSubmatch(query, -1)
	if len(matches) < 2 {
		return nil
	}

	var (
		attrs         attributes
		gotTTL, gotMR bool
	)
	for _, match := range matches {
		switch match[1] {
		case "ttl":
			ttl, err := strconv.Atoi(match[2])
			if err != nil || ttl < 0 {
				return nil
			}
			attrs.ttl, gotTTL = ttl, true
		case "max-rows":
			maxRows, err := strconv.Atoi(match[2])
			if err != nil || maxRows < 0 {
				return nil
			}
			attrs.maxRows, gotMR = maxRows, true
		case "salt":
			attrs.salt = match[2]
		case "deps":
			attrs.deps = splitDeps(match[2])
		}
	}
	if !gotTTL || !gotMR {
		return nil
	}

	return &attrs
}

// stripAttrs removes every cache attribute from query, along with the
// comments left empty by that, so that the same statement with different
// cache settings maps to the same key.
func stripAttrs(query string) string {
	q := attrRegexp.ReplaceAllString(query, "")
	q = emptyBlockRegexp.ReplaceAllString(q, "")
	q = emptyLineRegexp.ReplaceAllString(q, "")
	q = trailingRegexp.ReplaceAllString(q, "")
	q = blankLineRegexp.ReplaceAllString(q, "")
	return strings.TrimSpace(q)
}

// getDepsAttr returns the @cache-deps list of query, or nil when absent.
// Unlike getAttrs it does not need the other attributes.
func getDepsAttr(query string) []string {
	var deps []string
	for _, match := range attrRegexp.FindAllStringSubmatch(query, -1) {
		if match[1] == "deps" {
			deps = splitDeps(match[2])
		}
	}
	return deps
}

func splitDeps(list string) []string {
	deps := strings.Split(list, ",")
	for n := range deps {
		deps[n] = strings.TrimSpace(deps[n])
	}
	return deps
}
