// Command docgen collects the @Title/@Route annotations from the handlers in
// internal/api and writes an asciidoc API reference into internal/docs, where
// the dashboard's Docs view picks it up.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

type Endpoint struct {
	Title       string
	Route       string
	Description string
	Response    string
}

func main() {
	apiDir := "internal/api"
	outFile := filepath.Join("internal", "docs", "api-reference.adoc")

	files, err := os.ReadDir(apiDir)
	if err != nil {
		panic(err)
	}

	reTitle := regexp.MustCompile(`// @Title: (.*)`)
	reRoute := regexp.MustCompile(`// @Route: (.*)`)
	reDesc := regexp.MustCompile(`// @Description: (.*)`)
	reResp := regexp.MustCompile(`// @Response: (.*)`)

	var endpoints []Endpoint

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".go") || strings.HasSuffix(file.Name(), "_test.go") {
			continue
		}

		f, err := os.Open(filepath.Join(apiDir, file.Name()))
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(f)
		var current Endpoint

		for scanner.Scan() {
			line := scanner.Text()

			if match := reTitle.FindStringSubmatch(line); len(match) > 1 {
				current.Title = strings.TrimSpace(match[1])
			}
			if match := reRoute.FindStringSubmatch(line); len(match) > 1 {
				current.Route = strings.TrimSpace(match[1])
			}
			if match := reDesc.FindStringSubmatch(line); len(match) > 1 {
				current.Description = strings.TrimSpace(match[1])
			}
			if match := reResp.FindStringSubmatch(line); len(match) > 1 {
				current.Response = strings.TrimSpace(match[1])
				// End of block, append and reset
				if current.Title != "" && current.Route != "" {
					endpoints = append(endpoints, current)
					current = Endpoint{}
				}
			}
		}
		f.Close()
	}

	if err := os.WriteFile(outFile, []byte(renderAdoc(endpoints)), 0644); err != nil {
		panic(err)
	}
	fmt.Printf("Generated %s (%d endpoints)\n", outFile, len(endpoints))
}

func renderAdoc(endpoints []Endpoint) string {
	var b strings.Builder

	b.WriteString("= API Reference\n\n")
	b.WriteString("Auto-generated from handler annotations. Do not edit by hand;\n")
	b.WriteString("run `go run ./cmd/docgen` after changing internal/api.\n\n")

	for _, ep := range endpoints {
		fmt.Fprintf(&b, "== %s\n\n", ep.Title)
		fmt.Fprintf(&b, "`%s`\n\n", ep.Route)
		if ep.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", ep.Description)
		}
		if ep.Response != "" {
			fmt.Fprintf(&b, "Response:\n\n----\n%s\n----\n\n", ep.Response)
		}
	}

	return b.String()
}
