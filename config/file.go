package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// EntityDIDPattern matches DIDs minted for entities.
var EntityDIDPattern = regexp.MustCompile(`^did:ixo:entity:[a-f0-9]{32}$`)

// NewValidator returns a validator with the provisioning specific tags:
//
//   - did: generic DID syntax
//   - entitydid: did:ixo:entity:<32 hex>
//   - pin: six digits
//   - ixoaddress: bech32 ixo account address
func NewValidator() *validator.Validate {
	vdtor := validator.New()
	vdtor.RegisterValidation("did", func(fl validator.FieldLevel) bool {
		if _, err := syntax.ParseDID(fl.Field().String()); err != nil {
			return false
		}
		return true
	})
	vdtor.RegisterValidation("entitydid", func(fl validator.FieldLevel) bool {
		return EntityDIDPattern.MatchString(fl.Field().String())
	})
	vdtor.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return cryptoutils.ValidatePIN(fl.Field().String()) == nil
	})
	vdtor.RegisterValidation("ixoaddress", func(fl validator.FieldLevel) bool {
		return cryptoutils.ValidAddress(fl.Field().String())
	})
	return vdtor
}

// Validate checks v against its validate tags and reports every failing
// field as a ConfigurationError.
func Validate(v any) error {
	err := NewValidator().Struct(v)
	if err == nil {
		return nil
	}

	var validateErrors validator.ValidationErrors
	if !errors.As(err, &validateErrors) {
		return err
	}

	fields := make([]string, 0, len(validateErrors))
	for _, fe := range validateErrors {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return interfaces.NewConfigurationError(strings.Join(fields, ", "), "invalid value")
}

// ReadYAML reads a YAML document into out without validating it, for
// callers that fill defaults first.
func ReadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// LoadYAML reads a YAML document into out and validates it.
func LoadYAML(path string, out any) error {
	if err := ReadYAML(path, out); err != nil {
		return err
	}
	return Validate(out)
}
