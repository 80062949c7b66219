package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
	"github.com/swaggo/swag"
)

// swaggerDoc is the subset of a Swagger 2.0 document rendered into llms.txt.
type swaggerDoc struct {
	Info struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Version     string `json:"version"`
	} `json:"info"`
	Host                string                          `json:"host"`
	BasePath            string                          `json:"basePath"`
	Schemes             []string                        `json:"schemes"`
	Paths               map[string]map[string]operation `json:"paths"`
	SecurityDefinitions map[string]struct {
		Type        string `json:"type"`
		Name        string `json:"name"`
		In          string `json:"in"`
		Description string `json:"description"`
	} `json:"securityDefinitions"`
}

type operation struct {
	Summary     string                `json:"summary"`
	Description string                `json:"description"`
	Tags        []string              `json:"tags"`
	Security    []map[string][]string `json:"security"`
	Responses   map[string]struct {
		Description string `json:"description"`
	} `json:"responses"`
}

// LLMsHandler serves a markdown digest of the registered swagger document.
// The digest is rendered on first use and then cached.
func LLMsHandler(instance, basePath string, serverURLs []string) http.HandlerFunc {
	render := sync.OnceValues(func() (string, error) {
		raw, err := swag.ReadDoc(instance)
		if err != nil {
			return "", err
		}
		var doc swaggerDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return "", fmt.Errorf("parse swagger document: %w", err)
		}
		return renderLLMs(doc, basePath, serverURLs), nil
	})

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := render()
		if err != nil {
			slogx.FromContext(r.Context()).Error("llms_render_failed", slog.Any("error", err))
			httpx.Internal("API description unavailable").WriteError(w)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

var methodOrder = []string{"get", "post", "put", "patch", "delete"}

func renderLLMs(doc swaggerDoc, basePath string, serverURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", doc.Info.Title)
	if doc.Info.Description != "" {
		fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(doc.Info.Description, "\n", " "))
	}
	if doc.Info.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n\n", doc.Info.Version)
	}

	if len(serverURLs) == 0 && doc.Host != "" {
		scheme := "http"
		if len(doc.Schemes) > 0 {
			scheme = doc.Schemes[0]
		}
		serverURLs = []string{scheme + "://" + doc.Host}
	}
	if len(serverURLs) > 0 {
		b.WriteString("## Servers\n\n")
		for _, u := range serverURLs {
			fmt.Fprintf(&b, "- %s%s\n", strings.TrimSuffix(u, "/"), basePath)
		}
		b.WriteString("\n")
	}

	if len(doc.SecurityDefinitions) > 0 {
		b.WriteString("## Authentication\n\n")
		names := make([]string, 0, len(doc.SecurityDefinitions))
		for name := range doc.SecurityDefinitions {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			def := doc.SecurityDefinitions[name]
			fmt.Fprintf(&b, "- %s: `%s` %s. %s\n", name, def.Name, def.In, def.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Endpoints\n")
	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for _, p := range paths {
		for _, method := range methodOrder {
			op, ok := doc.Paths[p][method]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "\n### %s %s%s\n\n", strings.ToUpper(method), basePath, p)
			if op.Summary != "" {
				fmt.Fprintf(&b, "%s.", strings.TrimSuffix(op.Summary, "."))
				if op.Description != "" {
					fmt.Fprintf(&b, " %s", op.Description)
				}
				b.WriteString("\n\n")
			}
			if len(op.Security) > 0 {
				var schemes []string
				for _, s := range op.Security {
					for name := range s {
						schemes = append(schemes, name)
					}
				}
				slices.Sort(schemes)
				fmt.Fprintf(&b, "Auth: %s\n\n", strings.Join(schemes, ", "))
			}
			codes := make([]string, 0, len(op.Responses))
			for code := range op.Responses {
				codes = append(codes, code)
			}
			slices.Sort(codes)
			for _, code := range codes {
				fmt.Fprintf(&b, "- %s: %s\n", code, op.Responses[code].Description)
			}
		}
	}

	return b.String()
}
