package cachekey

import (
	"sort"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Comment", Pattern: `--[^\n]*|/\*[\s\S]*?\*/`},
	{Name: "String", Pattern: `[NnEe]?'(?:[^']|'')*'`},
	{Name: "Quoted", Pattern: `"(?:[^"]|"")*"|\x60[^\x60]*\x60|\[[^\]]*\]`},
	{Name: "Param", Pattern: `[$:@?][A-Za-z0-9_]*`},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]*)?(?:[eE][+-]?[0-9]+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_#][A-Za-z0-9_$#]*`},
	{Name: "Punct", Pattern: `[^\sA-Za-z0-9_]`},
})

var (
	symbols    = sqlLexer.Symbols()
	identType  = symbols["Ident"]
	quotedType = symbols["Quoted"]
	punctType  = symbols["Punct"]
	stringType = symbols["String"]
	paramType  = symbols["Param"]
	numberType = symbols["Number"]
)

type tokKind uint8

const (
	tokOther tokKind = iota
	tokIdent
	tokQuoted
	tokPunct
)

type token struct {
	kind tokKind
	text string
	word string // upper-cased text of identifiers
}

func (t token) name() bool { return t.kind == tokIdent || t.kind == tokQuoted }

// keywords after which a table reference follows
var triggers = map[string]bool{
	"FROM": true, "JOIN": true, "INTO": true, "UPDATE": true,
	"TABLE": true, "USING": true, "TRUNCATE": true,
}

// noise between a trigger and the table name
var skipWords = map[string]bool{
	"ONLY": true, "LATERAL": true, "IF": true, "NOT": true, "EXISTS": true,
	"IGNORE": true, "LOW_PRIORITY": true, "TEMPORARY": true, "TEMP": true,
}

// keywords ending a comma separated FROM list
var terminators = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true, "LIMIT": true,
	"UNION": true, "EXCEPT": true, "INTERSECT": true, "SET": true, "VALUES": true,
	"SELECT": true, "RETURNING": true, "WINDOW": true, "OFFSET": true,
	"FETCH": true, "FOR": true,
}

// keywords that are never table names and never call a function
var reserved = map[string]bool{
	"AS": true, "ON": true, "IN": true, "AND": true, "OR": true, "ALL": true,
	"ANY": true, "SOME": true, "WITH": true, "RECURSIVE": true, "CASE": true,
	"WHEN": true, "THEN": true, "ELSE": true, "END": true, "BY": true,
	"DISTINCT": true, "INNER": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"OUTER": true, "CROSS": true, "NATURAL": true, "DELETE": true,
	"INSERT": true, "MERGE": true, "REPLACE": true, "DO": true, "KEY": true,
}

func isKeyword(word string) bool {
	return triggers[word] || terminators[word] || reserved[word] || skipWords[word]
}

// ExtractDependencies returns the sorted, deduplicated, lower-cased names of
// the tables text reads or writes. Schema qualifiers and identifier quoting
// are dropped. Text that cannot be scanned yields an empty set.
func ExtractDependencies(text string) []string {
	toks, err := tokenize(text)
	if err != nil {
		return []string{}
	}
	return scanTables(toks)
}

func tokenize(text string) ([]token, error) {
	lex, err := sqlLexer.LexString("", text)
	if err != nil {
		return nil, err
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}

	toks := make([]token, 0, len(raw)/2)
	for _, t := range raw {
		switch t.Type {
		case identType:
			toks = append(toks, token{kind: tokIdent, text: t.Value, word: strings.ToUpper(t.Value)})
		case quotedType:
			toks = append(toks, token{kind: tokQuoted, text: t.Value})
		case punctType:
			toks = append(toks, token{kind: tokPunct, text: t.Value})
		case stringType, paramType, numberType:
			toks = append(toks, token{kind: tokOther, text: t.Value})
		}
	}
	return toks, nil
}

type frame struct {
	call bool // parentheses of a function call
	list bool // inside a comma separated FROM list
}

func scanTables(toks []token) []string {
	var (
		stack     = []frame{{}}
		tables    = map[string]struct{}{}
		ctes      = map[string]struct{}{}
		expect    bool
		trigger   string
		pending   string
		pendingBy string
		withSeen  bool
	)

	for i := 0; i < len(toks); i++ {
		t := toks[i]

		// A name directly followed by "(" is a function, unless it is the
		// target of INSERT INTO t (cols) or CREATE TABLE t (cols).
		if pending != "" {
			if t.text != "(" || pendingBy == "INTO" || pendingBy == "TABLE" {
				tables[pending] = struct{}{}
			}
			pending = ""
		}

		top := &stack[len(stack)-1]

		if t.kind == tokPunct {
			switch t.text {
			case "(":
				call := i > 0 && toks[i-1].kind == tokIdent && !isKeyword(toks[i-1].word)
				if expect {
					expect, call = false, false
				}
				stack = append(stack, frame{call: call})
			case ")":
				if len(stack) > 1 {
					stack = stack[:len(stack)-1]
				}
				expect = false
			case ",":
				if top.list {
					expect, trigger = true, "FROM"
				}
			}
			continue
		}

		if !t.name() {
			continue
		}

		if expect {
			if t.kind == tokIdent && skipWords[t.word] {
				continue
			}
			if t.kind == tokQuoted || !isKeyword(t.word) {
				var next int
				pending, next = readName(toks, i)
				pendingBy = trigger
				expect = false
				i = next - 1
				continue
			}
			expect = false
		}

		if t.kind != tokIdent {
			continue
		}

		switch {
		case t.word == "WITH":
			withSeen = true
		case withSeen && i+2 < len(toks) && toks[i+1].word == "AS" && toks[i+2].text == "(" && !isKeyword(t.word):
			ctes[normalizeName(t.text)] = struct{}{}
		case triggers[t.word]:
			if t.word == "FROM" && top.call {
				continue
			}
			if t.word == "UPDATE" && i > 0 {
				if prev := toks[i-1].word; prev == "FOR" || prev == "KEY" || prev == "DO" {
					continue
				}
			}
			expect, trigger = true, t.word
			if t.word == "FROM" {
				top.list = true
			}
		case terminators[t.word]:
			top.list = false
		}
	}
	if pending != "" {
		tables[pending] = struct{}{}
	}

	out := make([]string, 0, len(tables))
	for name := range tables {
		if _, cte := ctes[name]; !cte {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// readName reads a possibly qualified name starting at toks[i] and returns
// its last segment and the index following it.
func readName(toks []token, i int) (string, int) {
	name := normalizeName(toks[i].text)
	i++
	for i+1 < len(toks) && toks[i].text == "." && toks[i+1].name() {
		name = normalizeName(toks[i+1].text)
		i += 2
	}
	return name, i
}

func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch {
		case s[0] == '"' && s[len(s)-1] == '"':
			s = strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
		case s[0] == '`' && s[len(s)-1] == '`':
			s = s[1 : len(s)-1]
		case s[0] == '[' && s[len(s)-1] == ']':
			s = s[1 : len(s)-1]
		}
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeSet applies name normalization to an explicit dependency list.
func normalizeSet(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = lastSegment(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// lastSegment returns the normalized last segment of a possibly qualified
// and quoted name. Dots inside quotes belong to the segment.
func lastSegment(n string) string {
	toks, err := tokenize(n)
	if err == nil && len(toks) > 0 && toks[0].name() {
		if name, next := readName(toks, 0); next == len(toks) {
			return name
		}
	}
	if i := strings.LastIndexByte(n, '.'); i >= 0 {
		n = n[i+1:]
	}
	return normalizeName(n)
}
