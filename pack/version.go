package pack

import (
	"fmt"
	"os"

	"github.com/buger/jsonparser"
	log "github.com/sirupsen/logrus"
)

// ManifestVersion returns the "version" field of the JSON manifest fn.
// Unreadable or malformed manifests degrade to fallback.
func ManifestVersion(fn, fallback string) string {
	buf, err := os.ReadFile(fn)
	if err != nil {
		log.Errorf("error reading %s: %s", fn, err)
		return fallback
	}
	v, err := jsonparser.GetString(buf, "version")
	if err != nil {
		log.Errorf("error reading version from %s: %s", fn, err)
		return fallback
	}
	if v == "" {
		return fallback
	}
	return v
}

// ArchiveName is the file name of the packaged extension.
func ArchiveName(product, version string) string {
	return fmt.Sprintf("%s_v%s.zip", product, version)
}
