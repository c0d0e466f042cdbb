package guestbook

import "strings"

// bannedWords are matched case-insensitively as substrings, with no word
// boundary checks (Thai text has no spaces to split on).
var bannedWords = []string{
	"kuy", "sus", "fuck", "shit", "bitch", "asshole",
	"ควย", "สัส", "เหี้ย", "เย็ด", "มึง", "กู", "แม่ง", "ดอกทอง", "ร่าน", "ตอแหล",
	"พ่อมึงตาย", "แม่มึงตาย",
}

// ContainsProfanity reports whether text contains any banned term.
func ContainsProfanity(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, word := range bannedWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
