package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oracle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEntityInputDefaults(t *testing.T) {
	path := writeInput(t, `
pin: "123456"
profile:
  orgName: IXO
  name: Guru Bot
  location: Cape Town
  description: Answers questions about ixo
oracleConfig:
  price: 25
`)

	in, err := loadEntityInput(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.dicebear.com/8.x/bottts/svg?seed=Guru+Bot", in.Profile.Logo)
	assert.Equal(t, in.Profile.Logo, in.Profile.CoverImage)
	assert.Equal(t, "Guru Bot", in.OracleConfig.Name)
	assert.Equal(t, int64(25), in.OracleConfig.Price)
	assert.Empty(t, in.Services)
}

func TestLoadEntityInputServices(t *testing.T) {
	path := writeInput(t, `
apiUrl: https://oracle.example.com
parentProtocol: did:ixo:entity:1a76366f16570483cea72b111b27fd78
profile:
  orgName: IXO
  name: Guru
  logo: https://example.com/logo.png
  location: Cape Town
  description: Answers questions about ixo
oracleConfig:
  name: guru
services:
  - id: "{id}#api"
    type: oracleService
    serviceEndpoint: https://oracle.example.com
`)

	in, err := loadEntityInput(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/logo.png", in.Profile.CoverImage)
	assert.Equal(t, "guru", in.OracleConfig.Name)
	assert.Equal(t, []interfaces.Service{
		{ID: "{id}#api", Type: "oracleService", ServiceEndpoint: "https://oracle.example.com"},
	}, in.Services)
}

func TestLoadEntityInputInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name: "missing name",
			content: `
profile:
  orgName: IXO
  location: Cape Town
  description: d
`,
			field: "Name",
		},
		{
			name: "bad pin",
			content: `
pin: "12ab56"
profile: {orgName: IXO, name: Guru, location: Cape Town, description: d}
`,
			field: "PIN",
		},
		{
			name: "bad parent protocol",
			content: `
parentProtocol: did:ixo:ixo1abc
profile: {orgName: IXO, name: Guru, location: Cape Town, description: d}
`,
			field: "ParentProtocol",
		},
		{
			name: "bad service endpoint",
			content: `
profile: {orgName: IXO, name: Guru, location: Cape Town, description: d}
services:
  - {id: "{id}#api", type: oracleService, serviceEndpoint: not-a-url}
`,
			field: "ServiceEndpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadEntityInput(writeInput(t, tt.content))
			var cfgErr *interfaces.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, cfgErr.Field, tt.field)
		})
	}
}
