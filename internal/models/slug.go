package models

import "strings"

// Slugify приводит имя к слагу: нижний регистр, пробелы заменены дефисами.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
}
