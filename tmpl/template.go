package tmpl

import (
	"fmt"
	"github.com/goccy/go-json"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"strings"
)

const filterPrefix = "__filter_"

type part struct {
	text string
	expr *lua.FunctionProto
}

// Template is a compiled template bound to the engine that parsed it.
type Template struct {
	engine *Engine
	src    string
	parts  []part
}

// Parse compiles src. Text outside {{ }} blocks is copied verbatim.
func (e *Engine) Parse(src string) (*Template, error) {
	t := &Template{engine: e, src: src}
	if strings.Contains(src, "{%") {
		return nil, fmt.Errorf("%w: statement blocks are not supported in %q", ErrSyntax, src)
	}
	rest := src
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			return nil, fmt.Errorf("%w: unclosed {{ in %q", ErrSyntax, src)
		}
		if start > 0 {
			t.parts = append(t.parts, part{text: rest[:start]})
		}
		proto, err := compileExpr(rest[start+2:start+end], src)
		if err != nil {
			return nil, err
		}
		t.parts = append(t.parts, part{expr: proto})
		rest = rest[start+end+2:]
	}
	if rest != "" {
		t.parts = append(t.parts, part{text: rest})
	}
	return t, nil
}

func compileExpr(expr, name string) (*lua.FunctionProto, error) {
	code, err := translate(expr)
	if err != nil {
		return nil, err
	}
	chunk, err := parse.Parse(strings.NewReader("return "+code), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSyntax, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSyntax, err)
	}
	return proto, nil
}

func (t *Template) String() string { return t.src }

// Render evaluates the template with vars visible as globals.
func (t *Template) Render(vars map[string]any) (string, error) {
	var out strings.Builder
	for _, p := range t.parts {
		if p.expr == nil {
			out.WriteString(p.text)
			continue
		}
		v, err := t.engine.eval(p.expr, vars)
		if err != nil {
			t.engine.log.Debugf("rendering %q: %s", t.src, err)
			return "", err
		}
		out.WriteString(toString(v))
	}
	return out.String(), nil
}

// Extract renders a value template. The payload is visible as value and,
// when it is valid JSON, decoded as value_json.
func (t *Template) Extract(payload []byte) (string, error) {
	vars := map[string]any{"value": string(payload), "value_json": nil}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err == nil {
		vars["value_json"] = decoded
	}
	return t.Render(vars)
}

func (t *Template) Format(vars map[string]any) (string, error) {
	return t.Render(vars)
}

// translate rewrites filter pipes into calls and Jinja comparison syntax into Lua.
func translate(expr string) (string, error) {
	segments, err := split(expr)
	if err != nil {
		return "", err
	}
	code := strings.TrimSpace(segments[0])
	if code == "" {
		return "", fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	for _, seg := range segments[1:] {
		name, args, err := parseFilter(seg)
		if err != nil {
			return "", err
		}
		if _, ok := filters[name]; !ok {
			return "", fmt.Errorf("%w: unknown filter %q", ErrSyntax, name)
		}
		code = filterPrefix + name + "(" + code
		if args != "" {
			code += ", " + args
		}
		code += ")"
	}
	return code, nil
}

// split cuts expr on top level pipes, ignoring pipes inside strings and
// brackets, and replaces != with Lua's ~= on the way.
func split(expr string) ([]string, error) {
	var segments []string
	var cur strings.Builder
	var quote byte
	depth := 0
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if quote != 0 {
			cur.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(expr) {
					i++
					cur.WriteByte(expr[i])
				}
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced %q in %q", ErrSyntax, c, expr)
			}
		case '!':
			if i+1 < len(expr) && expr[i+1] == '=' {
				cur.WriteString("~=")
				i++
				continue
			}
		case '|':
			if depth == 0 {
				segments = append(segments, cur.String())
				cur.Reset()
				continue
			}
		}
		cur.WriteByte(c)
	}
	if quote != 0 || depth != 0 {
		return nil, fmt.Errorf("%w: unterminated string or bracket in %q", ErrSyntax, expr)
	}
	return append(segments, cur.String()), nil
}

func parseFilter(seg string) (name, args string, err error) {
	seg = strings.TrimSpace(seg)
	i := 0
	for i < len(seg) && (seg[i] == '_' || isAlpha(seg[i]) || (i > 0 && seg[i] >= '0' && seg[i] <= '9')) {
		i++
	}
	name, rest := seg[:i], strings.TrimSpace(seg[i:])
	if name == "" {
		return "", "", fmt.Errorf("%w: bad filter %q", ErrSyntax, seg)
	}
	if rest == "" {
		return name, "", nil
	}
	if rest[0] != '(' || rest[len(rest)-1] != ')' {
		return "", "", fmt.Errorf("%w: bad filter arguments %q", ErrSyntax, seg)
	}
	return name, strings.TrimSpace(rest[1 : len(rest)-1]), nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
