package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Text field limits shared by the admin endpoints and the /api/limits response.
const (
	MaxClipTitleLength           = 200
	MaxTitleShortLength          = 80
	MaxSummaryShortLength        = 500
	MaxEpisodeLength             = 50
	MaxCategoryNameLength        = 100
	MaxCategoryDescriptionLength = 1000
	MaxCategoryIDLength          = 100
	MaxVideoTitleLength          = 300
	MaxTranscriptLength          = 20000
)

// checkLen counts characters, not bytes.
func checkLen(value string, max int, field string) string {
	if utf8.RuneCountInString(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func ClipTitle(s string) string    { return checkLen(s, MaxClipTitleLength, "title") }
func TitleShort(s string) string   { return checkLen(s, MaxTitleShortLength, "short title") }
func SummaryShort(s string) string { return checkLen(s, MaxSummaryShortLength, "short summary") }
func Episode(s string) string      { return checkLen(s, MaxEpisodeLength, "episode") }
func CategoryName(s string) string { return checkLen(s, MaxCategoryNameLength, "category name") }
func CategoryDescription(s string) string {
	return checkLen(s, MaxCategoryDescriptionLength, "category description")
}
func VideoTitle(s string) string { return checkLen(s, MaxVideoTitleLength, "video title") }
func Transcript(s string) string { return checkLen(s, MaxTranscriptLength, "transcript") }

// CategoryID rejects ids that are too long or carry markup/quote characters.
func CategoryID(s string) string {
	if msg := checkLen(s, MaxCategoryIDLength, "categoryId"); msg != "" {
		return msg
	}
	if strings.ContainsAny(s, `<>"'`) {
		return "categoryId contains invalid characters"
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"clipTitle":           MaxClipTitleLength,
		"titleShort":          MaxTitleShortLength,
		"summaryShort":        MaxSummaryShortLength,
		"episode":             MaxEpisodeLength,
		"categoryName":        MaxCategoryNameLength,
		"categoryDescription": MaxCategoryDescriptionLength,
		"videoTitle":          MaxVideoTitleLength,
		"transcript":          MaxTranscriptLength,
	}
}
