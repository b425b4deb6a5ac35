package outline

import (
	"regexp"
	"strings"
)

// Line-scanning outlines for indentation- and brace-structured languages.
// Coarser than a real parser, but line ranges and names are what the
// annotation anchors need.

var (
	pythonDefRe = regexp.MustCompile(`^(\s*)(def|class)\s+(\w+)\s*(\([^)]*\))?`)
	scriptDefRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:(function)\s+(\w+)\s*(\([^)]*\))?|(class)\s+(\w+)|(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:function\b|\())`)
)

func pythonOutline(src string) []Unit {
	lines := strings.Split(src, "\n")
	var units []Unit

	for i, line := range lines {
		m := pythonDefRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent := len(m[1])
		unitType := "function"
		if m[2] == "class" {
			unitType = "class"
		}

		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			next := lines[j]
			if strings.TrimSpace(next) == "" {
				continue
			}
			if indentOf(next) <= indent {
				end = j
				break
			}
		}

		units = append(units, Unit{
			Type:      unitType,
			Name:      m[3],
			Signature: strings.TrimSpace(line),
			StartLine: i + 1,
			EndLine:   lastNonBlank(lines, i, end),
		})
	}
	return units
}

func scriptOutline(src string) []Unit {
	lines := strings.Split(src, "\n")
	var units []Unit

	for i, line := range lines {
		m := scriptDefRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		var unitType, name string
		switch {
		case m[1] == "function":
			unitType, name = "function", m[2]
		case m[4] == "class":
			unitType, name = "class", m[5]
		default:
			unitType, name = "function", m[6]
		}

		units = append(units, Unit{
			Type:      unitType,
			Name:      name,
			Signature: strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "{")),
			StartLine: i + 1,
			EndLine:   braceSpanEnd(lines, i),
		})
	}
	return units
}

// braceSpanEnd finds the line closing the brace block opened at start. If
// no block opens there, the unit is a single line.
func braceSpanEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		for _, c := range lines[i] {
			switch c {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i + 1
		}
	}
	if !opened {
		return start + 1
	}
	return len(lines)
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func lastNonBlank(lines []string, start, end int) int {
	for j := end - 1; j > start; j-- {
		if strings.TrimSpace(lines[j]) != "" {
			return j + 1
		}
	}
	return start + 1
}
