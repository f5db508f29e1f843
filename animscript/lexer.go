// Package animscript reads the animation scripts stored next to models:
// the root, head and torso bones, named frame range actions and the
// animations blending them.
package animscript

import (
	"strconv"

	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

const (
	TOKEN_STRING = iota
	TOKEN_INTEGER
	TOKEN_FLOAT
	TOKEN_COMMAND
	TOKEN_UNKNOWN
	token_identifier // classified into COMMAND or UNKNOWN by Tokenize
)

var tokenNames = [...]string{
	TOKEN_STRING:     "string",
	TOKEN_INTEGER:    "integer",
	TOKEN_FLOAT:      "float",
	TOKEN_COMMAND:    "command",
	TOKEN_UNKNOWN:    "identifier",
	token_identifier: "identifier",
}

const (
	CMD_ROOTBONE    = "rootbone"
	CMD_HEADBONE    = "headbone"
	CMD_TORSOBONE   = "torsobone"
	CMD_ACTION      = "action"
	CMD_ANIMATION   = "animation"
	CMD_BLENDACTION = "blendaction"
)

var keywords = map[string]bool{
	CMD_ROOTBONE:    true,
	CMD_HEADBONE:    true,
	CMD_TORSOBONE:   true,
	CMD_ACTION:      true,
	CMD_ANIMATION:   true,
	CMD_BLENDACTION: true,
}

type Token struct {
	Type   int
	Value  string // unquoted for strings
	Line   int
	Column int
}

func (t Token) TypeName() string {
	return tokenNames[t.Type]
}

var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	lexer.Add([]byte(`//[^\n]*`), skip)
	lexer.Add([]byte(`"(\\.|[^"\\])*"`), getToken(TOKEN_STRING))
	lexer.Add([]byte(`[\+\-]?([0-9]+\.[0-9]*|\.[0-9]+)`), getToken(TOKEN_FLOAT))
	lexer.Add([]byte(`[\+\-]?[0-9]+`), getToken(TOKEN_INTEGER))
	lexer.Add([]byte(`[a-zA-Z_][a-zA-Z0-9_]*`), getToken(token_identifier))
	lexer.Add([]byte(`\s+`), skip)
	if err := lexer.Compile(); err != nil {
		panic(err)
	}
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

// Tokenize splits text into tokens. In strict mode an identifier that is not
// a command is an error; otherwise it becomes a TOKEN_UNKNOWN.
func Tokenize(text []byte, strict bool) ([]Token, error) {
	scanner, err := lexer.Scanner(text)
	if err != nil {
		return nil, newError(0, 0, "failed to create scanner: %v", err)
	}

	result := make([]Token, 0, 64)
	for Itok, err, eos := scanner.Next(); !eos; Itok, err, eos = scanner.Next() {
		if err != nil {
			if ui, ok := err.(*machines.UnconsumedInput); ok {
				at := "end of file"
				if ui.StartTC < len(text) {
					at = strconv.Quote(string(text[ui.StartTC]))
				}
				return nil, newError(ui.StartLine, ui.StartColumn, "unexpected input at %s", at)
			}
			return nil, newError(0, 0, "failed to scan: %v", err)
		}
		tok := Itok.(*lexmachine.Token)
		t := Token{
			Type:   tok.Type,
			Value:  tok.Value.(string),
			Line:   tok.StartLine,
			Column: tok.StartColumn,
		}

		switch t.Type {
		case TOKEN_STRING:
			s, err := strconv.Unquote(t.Value)
			if err != nil {
				return nil, newError(t.Line, t.Column, "bad string %s", t.Value)
			}
			t.Value = s
		case token_identifier:
			if keywords[t.Value] {
				t.Type = TOKEN_COMMAND
			} else if strict {
				return nil, newError(t.Line, t.Column, "unknown identifier %q", t.Value)
			} else {
				t.Type = TOKEN_UNKNOWN
			}
		}
		result = append(result, t)
	}
	return result, nil
}
