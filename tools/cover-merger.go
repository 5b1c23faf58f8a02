//go:build tools

// cover-merger joins the profiles written by the unit run and the
// integration run (-tags integration) into one coverage.out.
//
//	go test -coverprofile=unit.cover ./...
//	go test -tags integration -coverprofile=integration.cover ./internal/repository/...
//	go run -tags tools ./tools/cover-merger.go
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func main() {
	out := flag.String("o", "coverage.out", "merged profile to write")
	pattern := flag.String("in", "*.cover", "glob of profiles to merge")
	flag.Parse()

	if err := run(*out, *pattern); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(out, pattern string) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to find profiles: %w", err)
	}

	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "warning: no profiles match %q\n", pattern)
		return nil
	}

	var mode string
	blocks := make(map[string]struct{})

	for _, file := range files {
		fileMode, lines, err := readProfile(file)
		if err != nil {
			return err
		}

		if mode == "" {
			mode = fileMode
		} else if fileMode != mode {
			return fmt.Errorf("%s uses mode %q, expected %q", file, fileMode, mode)
		}

		for _, line := range lines {
			blocks[line] = struct{}{}
		}
	}

	merged := make([]string, 0, len(blocks))
	for line := range blocks {
		merged = append(merged, line)
	}
	sort.Strings(merged)

	var b strings.Builder
	b.WriteString("mode: " + mode + "\n")
	for _, line := range merged {
		b.WriteString(line + "\n")
	}

	if err := os.WriteFile(out, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("merged %d profiles into %s (%d blocks)\n", len(files), out, len(merged))

	return nil
}

func readProfile(path string) (string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var (
		mode  string
		lines []string
	)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case line == "":
		case strings.HasPrefix(line, "mode: "):
			mode = strings.TrimPrefix(line, "mode: ")
		default:
			lines = append(lines, line)
		}
	}

	if err := sc.Err(); err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if mode == "" {
		return "", nil, fmt.Errorf("%s has no mode line", path)
	}

	return mode, lines, nil
}
