package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

var NowFunc = time.Now // mockable

// Now returns the current UTC time at the precision the databases keep.
func Now() time.Time {
	return NowFunc().UTC().Truncate(time.Microsecond)
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify returns the URL slug of s, e.g. "Olá, Mundo!" -> "ola-mundo".
func Slugify(s string) string {
	return slug.Make(s)
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests,
// so we walk up from there.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd // deployed binary: no go.mod around
		}
		currDir = newDir
	}
}
