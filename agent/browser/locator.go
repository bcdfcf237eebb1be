package browser

import (
	"fmt"
	"strings"
)

// Strategy tells the driver how to resolve a locator query.
type Strategy int

const (
	// StrategyCSS resolves Query with querySelector.
	StrategyCSS Strategy = iota
	// StrategyXPath resolves Query as an XPath expression.
	StrategyXPath
)

func (s Strategy) String() string {
	if s == StrategyXPath {
		return "xpath"
	}
	return "css"
}

// Locator is a parsed selector string.
type Locator struct {
	Raw      string
	Strategy Strategy
	Query    string
}

// ParseLocator understands the selector dialects found in recorded selectors:
//
//	role=button[name='Run query']   element with that ARIA role and accessible name
//	data-testid=editor >> textarea  descendant of the element with that test id
//	xpath=//div, //div, (//div)[1]  XPath
//	text=Save, text="Save"          element whose own text contains (or equals) Save
//	css=div.a, div.a >> span        CSS; >> chains become descendant combinators
func ParseLocator(selector string) (Locator, error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return Locator{}, fmt.Errorf("empty selector")
	}
	loc := Locator{Raw: selector}

	switch {
	case strings.HasPrefix(s, "role="):
		q, err := roleXPath(s[len("role="):])
		if err != nil {
			return Locator{}, err
		}
		loc.Strategy, loc.Query = StrategyXPath, q

	case strings.HasPrefix(s, "data-testid="):
		value := s[len("data-testid="):]
		main, rest, chained := strings.Cut(value, ">>")
		q := fmt.Sprintf("[data-testid=%s]", cssString(unquote(strings.TrimSpace(main))))
		if chained {
			q += " " + joinCSSChain(rest)
		}
		loc.Strategy, loc.Query = StrategyCSS, q

	case strings.HasPrefix(s, "xpath="):
		loc.Strategy, loc.Query = StrategyXPath, strings.TrimSpace(s[len("xpath="):])

	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "(/"):
		loc.Strategy, loc.Query = StrategyXPath, s

	case strings.HasPrefix(s, "text="):
		loc.Strategy, loc.Query = StrategyXPath, textXPath(s[len("text="):])

	case strings.HasPrefix(s, "css="):
		loc.Strategy, loc.Query = StrategyCSS, joinCSSChain(s[len("css="):])

	default:
		loc.Strategy, loc.Query = StrategyCSS, joinCSSChain(s)
	}

	if loc.Query == "" {
		return Locator{}, fmt.Errorf("invalid selector %q", selector)
	}
	return loc, nil
}

func joinCSSChain(s string) string {
	parts := strings.Split(s, ">>")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// roleTests maps ARIA roles to the native elements that carry them implicitly.
var roleTests = map[string]string{
	"button":   "self::button or (self::input and (@type='button' or @type='submit' or @type='reset'))",
	"link":     "self::a[@href]",
	"textbox":  "self::textarea or (self::input and (not(@type) or @type='text' or @type='email' or @type='password' or @type='search' or @type='url' or @type='tel'))",
	"checkbox": "self::input[@type='checkbox']",
	"radio":    "self::input[@type='radio']",
	"combobox": "self::select",
	"heading":  "self::h1 or self::h2 or self::h3 or self::h4 or self::h5 or self::h6",
	"img":      "self::img",
	"listitem": "self::li",
}

// roleXPath converts "button[name='Run']" into an XPath expression.
func roleXPath(expr string) (string, error) {
	role, params, hasParams := strings.Cut(expr, "[")
	role = strings.TrimSpace(role)
	if role == "" {
		return "", fmt.Errorf("role selector without role")
	}

	test := "@role=" + xpathString(role)
	if native, ok := roleTests[role]; ok {
		test = native + " or " + test
	}
	q := "//*[" + test + "]"

	if !hasParams {
		return q, nil
	}
	params = strings.TrimSuffix(strings.TrimSpace(params), "]")
	key, value, ok := strings.Cut(params, "=")
	if !ok || strings.TrimSpace(key) != "name" {
		return "", fmt.Errorf("unsupported role option %q", params)
	}
	name := xpathString(unquote(strings.TrimSpace(value)))
	q += fmt.Sprintf("[contains(normalize-space(.), %s) or @aria-label=%s or @title=%s or @value=%s]",
		name, name, name, name)
	return q, nil
}

// textXPath matches the element owning the text node. Quoted text matches exactly.
func textXPath(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if isQuoted(text) {
		return fmt.Sprintf("//*[not(self::script or self::style)][text()[normalize-space(.)=%s]]",
			xpathString(unquote(text)))
	}
	return fmt.Sprintf("//*[not(self::script or self::style)][text()[contains(normalize-space(.), %s)]]",
		xpathString(text))
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]
}

func unquote(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}

// xpathString quotes s as an XPath 1.0 literal, which has no escapes.
func xpathString(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}

func cssString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
