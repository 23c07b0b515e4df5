package toast

import (
	"os"
	"path/filepath"

	"github.com/Mavwarf/stillness/internal/icon"
	"github.com/Mavwarf/stillness/internal/paths"
)

const iconFileName = "icon.png"

// ensureIcon writes a 64×64 app icon to DataDir()/icon.png if it is not
// there yet and returns its path.
func ensureIcon() (string, error) {
	p := filepath.Join(paths.DataDir(), iconFileName)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	data, err := icon.PNG(64)
	if err != nil {
		return "", err
	}
	if err := paths.AtomicWrite(p, data); err != nil {
		return "", err
	}
	return p, nil
}

// iconPath is ensureIcon without the error; toasts work without an icon.
func iconPath() string {
	p, _ := ensureIcon()
	return p
}
