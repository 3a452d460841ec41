package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"pdf-qa-go/internal/model"
)

const maxTitleScanLines = 15

var sectionMarkers = []string{"chapter", "section", "part", "introduction", "conclusion"}

// DetectSectionTitle 在页面前 15 个非空行中寻找第一个像标题的行：
// 去空白后长度在 (5, 80) 之间，且全大写、标题式大小写或包含章节关键字。找不到时返回 "Unknown"。
func DetectSectionTitle(text string) string {
	scanned := 0
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if scanned == maxTitleScanLines {
			break
		}
		scanned++

		n := utf8.RuneCountInString(line)
		if n <= 5 || n >= 80 {
			continue
		}
		if isUpper(line) || isTitle(line) || hasSectionMarker(line) {
			return line
		}
	}
	return model.UnknownSection
}

func isCased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
}

// isUpper 至少含一个有大小写之分的字符，且其中没有小写字母。
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// isTitle 每个单词以大写字母开头，其后只跟小写字母；单词由无大小写之分的字符分隔。
func isTitle(s string) bool {
	cased := false
	prevCased := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased = true
			cased = true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased = true
			cased = true
		default:
			prevCased = isCased(r)
		}
	}
	return cased
}

func hasSectionMarker(line string) bool {
	lower := strings.ToLower(line)
	for _, m := range sectionMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
