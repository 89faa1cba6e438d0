package storage

import "regexp"

// TitlePattern returns raw if it is a valid regular expression, otherwise raw with its
// metacharacters escaped, so a title with stray brackets still matches literally.
func TitlePattern(raw string) string {
	if _, err := regexp.Compile(raw); err != nil {
		return regexp.QuoteMeta(raw)
	}
	return raw
}
