package bills

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidFileType is returned when a receipt is not a jpg, jpeg or png file.
var ErrInvalidFileType = errors.New("invalid file type")

// InvalidFileMessage is the warning shown when a selected receipt is rejected.
const InvalidFileMessage = "Seuls les fichiers jpg, jpeg et png sont acceptés."

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// ValidateFile checks the extension of a selected receipt file name.
// The comparison is case-insensitive. It returns the normalized extension
// without the leading dot. Browsers may prefix the name with a fake path
// ("C:\fakepath\..."), only the final element is considered.
func ValidateFile(name string) (string, error) {
	base := strings.TrimSpace(name)
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	ext := normalizeExtension(path.Ext(base))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("ValidateFile: %q: %w", name, ErrInvalidFileType)
	}
	return ext, nil
}

// normalizeExtension lowercases an extension and strips its dot.
func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
