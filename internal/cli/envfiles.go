// Package cli implements the gatehouse developer commands.
package cli

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
)

//go:embed templates/*.env.tmpl
var templatesFS embed.FS

// SecretBytes is the size of a generated AUTH_SECRET before encoding.
const SecretBytes = 32

// EnvFile maps a template to the file it produces.
type EnvFile struct {
	App      string
	Template string
	Target   string
}

// EnvFiles lists the files written by WriteEnvFiles, relative to the
// target directory.
var EnvFiles = []EnvFile{
	{App: "auth", Template: "templates/auth.env.tmpl", Target: "auth.env"},
	{App: "resource", Template: "templates/resource.env.tmpl", Target: "resource.env"},
	{App: "mcp", Template: "templates/mcp.env.tmpl", Target: "mcp.env"},
}

type envData struct {
	AuthSecret string
}

// EnvResult reports what happened to one file.
type EnvResult struct {
	Path    string
	Skipped bool
}

// WriteEnvFiles renders every env template into dir. Existing files are left
// alone unless force is set. A fresh AUTH_SECRET is generated per call.
func WriteEnvFiles(dir string, force bool) ([]EnvResult, error) {
	secret, err := cryptox.GenerateSecret(SecretBytes)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	data := envData{AuthSecret: secret}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	results := make([]EnvResult, 0, len(EnvFiles))
	for _, f := range EnvFiles {
		path := filepath.Join(dir, f.Target)

		if !force {
			_, err := os.Stat(path)
			if err == nil {
				results = append(results, EnvResult{Path: path, Skipped: true})
				continue
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return results, fmt.Errorf("stat %s: %w", path, err)
			}
		}

		content, err := render(f.Template, data)
		if err != nil {
			return results, err
		}
		if err := os.WriteFile(path, content, 0o600); err != nil {
			return results, fmt.Errorf("write %s: %w", path, err)
		}
		results = append(results, EnvResult{Path: path})
	}
	return results, nil
}

func render(name string, data envData) ([]byte, error) {
	tmpl, err := template.ParseFS(templatesFS, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
