package docker

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/huangsam/packlint/internal/contract"
)

// DockerfileData feeds the test image template.
type DockerfileData struct {
	BaseImage    string
	Requirements []string
	WorkDir      string
	GID          int
}

var dockerfileTemplate = template.Must(template.New("Dockerfile").Funcs(template.FuncMap{
	"quote":  contract.ShellQuote,
	"alpine": func(image string) bool { return strings.Contains(image, "alpine") },
}).Parse(`FROM {{ .BaseImage }}
{{- if .Requirements }}
{{- if alpine .BaseImage }}
RUN apk --update add --no-cache --virtual .build-dependencies python-dev build-base wget || true
{{- end }}
RUN python -m pip install --no-cache-dir{{ range .Requirements }} {{ quote . }}{{ end }}
{{- if alpine .BaseImage }}
RUN apk del .build-dependencies || true
{{- end }}
{{- end }}
RUN mkdir -p {{ .WorkDir }} && chown -R :{{ .GID }} {{ .WorkDir }} && chmod -R 775 {{ .WorkDir }}
WORKDIR {{ .WorkDir }}
`))

// RenderDockerfile renders the Dockerfile used to build a package test image.
// The image carries the interpreter dependencies and an empty work directory.
func RenderDockerfile(data DockerfileData) ([]byte, error) {
	if data.BaseImage == "" {
		return nil, fmt.Errorf("base image is required")
	}
	if data.WorkDir == "" {
		data.WorkDir = "/devwork"
	}
	var buf bytes.Buffer
	if err := dockerfileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render dockerfile: %w", err)
	}
	return buf.Bytes(), nil
}
