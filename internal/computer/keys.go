// Copyright 2025 Tomas Cupr
//
// Key name translation for cliclick

package computer

import "strings"

// specialKeys maps canonical key names (lowercased) to cliclick key-press
// codes. Any token not in this table is typed as a literal character with
// t: instead of pressed with kp:.
var specialKeys = map[string]string{
	"return":    "return",
	"enter":     "return",
	"space":     "space",
	"tab":       "tab",
	"left":      "arrow-left",
	"right":     "arrow-right",
	"up":        "arrow-up",
	"down":      "arrow-down",
	"escape":    "esc",
	"esc":       "esc",
	"delete":    "delete",
	"backspace": "delete",
	"home":      "home",
	"end":       "end",
	"pageup":    "page-up",
	"pagedown":  "page-down",
	"f1":        "f1",
	"f2":        "f2",
	"f3":        "f3",
	"f4":        "f4",
	"f5":        "f5",
	"f6":        "f6",
	"f7":        "f7",
	"f8":        "f8",
	"f9":        "f9",
	"f10":       "f10",
	"f11":       "f11",
	"f12":       "f12",
}

// normalizeModifier maps a combo modifier token to its cliclick name.
// Unrecognized modifier tokens are dropped.
func normalizeModifier(token string) (string, bool) {
	switch strings.TrimSpace(token) {
	case "cmd", "command":
		return "cmd", true
	case "ctrl":
		return "ctrl", true
	case "alt":
		return "alt", true
	case "shift":
		return "shift", true
	default:
		return "", false
	}
}

// keyArgs translates a key press specification into cliclick arguments.
//
// A "+"-separated combination treats all tokens but the last as modifiers
// and brackets the target with kd:/ku:. The target becomes kp:<code> when
// it is a named key, or t:<literal> otherwise; a modifier-only combination
// still brackets the (empty) literal.
func keyArgs(text string) []string {
	if strings.Contains(text, "+") {
		tokens := strings.Split(text, "+")
		var mods []string
		for _, tok := range tokens[:len(tokens)-1] {
			if m, ok := normalizeModifier(tok); ok {
				mods = append(mods, m)
			}
		}
		target := strings.TrimSpace(tokens[len(tokens)-1])

		var keyArg string
		if code, ok := specialKeys[strings.ToLower(target)]; ok {
			keyArg = "kp:" + code
		} else {
			keyArg = "t:" + target
		}

		if len(mods) > 0 {
			joined := strings.Join(mods, ",")
			return []string{"kd:" + joined, keyArg, "ku:" + joined}
		}
		return []string{keyArg}
	}

	if code, ok := specialKeys[strings.ToLower(text)]; ok {
		return []string{"kp:" + code}
	}
	return []string{"t:" + text}
}

// holdKeyName normalizes a hold_key target to its cliclick name. Unlike
// combos, unknown names pass through lowercased so plain character keys can
// be held as well.
func holdKeyName(text string) string {
	if m, ok := normalizeModifier(strings.ToLower(text)); ok {
		return m
	}
	return strings.ToLower(text)
}
