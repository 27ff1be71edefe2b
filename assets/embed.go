// assets/embed.go
//
// Files compiled into the binary.
//   - levels.json: the default level ladder.
//   - dialogue/*.txt: opponent lines, one per line, grouped by category.
//   - sql/*.sql: schema migrations, applied in lexical order.

package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed levels.json dialogue/*.txt sql/*.sql
var FS embed.FS

// readLines returns the non-blank lines of name, skipping # comments.
func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// Levels returns the embedded level ladder as JSON.
func Levels() ([]byte, error) {
	return FS.ReadFile("levels.json")
}

// DialogueLines returns the lines of dialogue/<category>.txt.
func DialogueLines(category string) ([]string, error) {
	return readLines("dialogue/" + category + ".txt")
}

// Migrations returns the sql directory as its own filesystem.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // the directory is embedded; Sub only fails on a bad pattern
	}
	return sub
}
