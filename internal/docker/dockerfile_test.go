package docker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDockerfile_Alpine(t *testing.T) {
	out, err := RenderDockerfile(DockerfileData{
		BaseImage:    "demisto/python:1.3-alpine",
		Requirements: []string{"pylint==1.9.5", "pytest>=4"},
		GID:          4000,
	})
	require.NoError(t, err)
	text := string(out)

	assert.True(t, strings.HasPrefix(text, "FROM demisto/python:1.3-alpine\n"))
	assert.Contains(t, text, "apk --update add --no-cache --virtual .build-dependencies")
	assert.Contains(t, text, "pip install --no-cache-dir pylint==1.9.5 'pytest>=4'")
	assert.Contains(t, text, "RUN apk del .build-dependencies")
	assert.Contains(t, text, "RUN mkdir -p /devwork && chown -R :4000 /devwork && chmod -R 775 /devwork\nWORKDIR /devwork\n")
	assert.NotContains(t, text, "COPY", "sources are copied into containers at run time")
}

func TestRenderDockerfile_Debian(t *testing.T) {
	out, err := RenderDockerfile(DockerfileData{
		BaseImage:    "demisto/python3-deb:3.8.6",
		Requirements: []string{"pylint==2.5.3"},
		WorkDir:      "/work",
		GID:          1,
	})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "apk")
	assert.Contains(t, string(out), "WORKDIR /work")
}

func TestRenderDockerfile_NoRequirements(t *testing.T) {
	out, err := RenderDockerfile(DockerfileData{BaseImage: "demisto/powershell:7.1.3.22028", GID: 4000})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "pip install")
	assert.Contains(t, string(out), "WORKDIR /devwork")
}

func TestRenderDockerfile_MissingBase(t *testing.T) {
	_, err := RenderDockerfile(DockerfileData{})
	assert.Error(t, err)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "c\nd", tail("a\nb\nc\nd\n", 2))
	assert.Equal(t, "a", tail("a", 5))
}
