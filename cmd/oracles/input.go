package main

import (
	"fmt"
	"net/url"

	"github.com/ixoworld/oracle-provisioner/config"
	"github.com/ixoworld/oracle-provisioner/entity"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// entityInput is the YAML file describing an oracle entity:
//
//	pin: "123456"
//	apiUrl: https://oracle.example.com
//	profile:
//	  orgName: IXO
//	  name: Guru
//	  location: Cape Town
//	  description: Answers questions about ixo
//	oracleConfig:
//	  price: 25
type entityInput struct {
	PIN            string               `yaml:"pin" validate:"omitempty,pin"`
	APIURL         string               `yaml:"apiUrl" validate:"omitempty,url"`
	ParentProtocol string               `yaml:"parentProtocol" validate:"omitempty,entitydid"`
	Profile        entity.Profile       `yaml:"profile"`
	OracleConfig   entity.OracleConfig  `yaml:"oracleConfig"`
	Services       []interfaces.Service `yaml:"services" validate:"dive"`
}

// avatarURL returns the generated avatar used when no logo is given.
func avatarURL(seed string) string {
	return "https://api.dicebear.com/8.x/bottts/svg?seed=" + url.QueryEscape(seed)
}

func (in *entityInput) applyDefaults() {
	if in.Profile.Logo == "" && in.Profile.Name != "" {
		in.Profile.Logo = avatarURL(in.Profile.Name)
	}
	if in.Profile.CoverImage == "" {
		in.Profile.CoverImage = in.Profile.Logo
	}
	if in.OracleConfig.Name == "" {
		in.OracleConfig.Name = in.Profile.Name
	}
}

// loadEntityInput reads path, fills defaults and validates the result.
func loadEntityInput(path string) (*entityInput, error) {
	var in entityInput
	if err := config.ReadYAML(path, &in); err != nil {
		return nil, err
	}
	in.applyDefaults()
	if err := config.Validate(&in); err != nil {
		return nil, fmt.Errorf("invalid input %s: %w", path, err)
	}
	return &in, nil
}
