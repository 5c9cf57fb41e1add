package util

import "strings"

var filenameReplacer = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename replaces characters that are invalid in filenames on common filesystems, and escapes a leading dot
// so the result is never a hidden file.
func SanitizeFilename(name string) string {
	name = filenameReplacer.Replace(name)
	if strings.HasPrefix(name, ".") {
		name = "_" + name
	}
	return name
}
