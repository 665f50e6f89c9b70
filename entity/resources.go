package entity

import (
	"time"
)

// Profile describes the public face of an oracle entity.
type Profile struct {
	OrgName     string `json:"orgName" yaml:"orgName" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Logo        string `json:"logo" yaml:"logo" validate:"required,url"`
	CoverImage  string `json:"coverImage" yaml:"coverImage" validate:"required,url"`
	Location    string `json:"location" yaml:"location" validate:"required"`
	Description string `json:"description" yaml:"description" validate:"required"`
	URL         string `json:"url,omitempty" yaml:"url" validate:"omitempty,url"`
}

// OracleConfig holds the commercial settings of an oracle. Price is in IXO
// credits.
type OracleConfig struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	Price int64  `json:"price" yaml:"price" validate:"gte=0"`
}

// creditUnit is the uixo amount of one IXO credit.
const creditUnit = 1000

type profileDocument struct {
	Context     map[string]any `json:"@context"`
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	OrgName     string         `json:"orgName"`
	Name        string         `json:"name"`
	Image       string         `json:"image"`
	Logo        string         `json:"logo"`
	Brand       string         `json:"brand"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
}

func newProfileDocument(p Profile) *profileDocument {
	return &profileDocument{
		Context: map[string]any{
			"ixo":        "https://w3id.org/ixo/ns/protocol/",
			"@id":        "@type",
			"type":       "@type",
			"@protected": false,
		},
		ID:          "ixo:entity#profile",
		Type:        "profile",
		OrgName:     p.OrgName,
		Name:        p.Name,
		Image:       p.CoverImage,
		Logo:        p.Logo,
		Brand:       p.OrgName,
		Location:    p.Location,
		Description: p.Description,
	}
}

type idRef struct {
	ID string `json:"id"`
}

type imageObject struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	ContentURL string `json:"contentUrl"`
}

type postalAddress struct {
	Type            string `json:"type"`
	AddressLocality string `json:"addressLocality"`
}

type credentialSchema struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type domainCardSubject struct {
	ID             string        `json:"id"`
	Type           []string      `json:"type"`
	AdditionalType []string      `json:"additionalType"`
	Name           string        `json:"name"`
	AlternateName  []string      `json:"alternateName,omitempty"`
	Description    string        `json:"description"`
	Logo           imageObject   `json:"logo"`
	Image          []imageObject `json:"image"`
	Address        postalAddress `json:"address"`
	URL            string        `json:"url,omitempty"`
}

type domainCard struct {
	Context           []any             `json:"@context"`
	ID                string            `json:"id"`
	Type              []string          `json:"type"`
	Issuer            idRef             `json:"issuer"`
	ValidFrom         string            `json:"validFrom"`
	CredentialSchema  credentialSchema  `json:"credentialSchema"`
	CredentialSubject domainCardSubject `json:"credentialSubject"`
}

// newDomainCard builds the domain card credential of entityDID issued by
// issuerDID.
func newDomainCard(p Profile, entityDID, issuerDID string, validFrom time.Time) *domainCard {
	var alternateName []string
	if p.OrgName != p.Name {
		alternateName = []string{p.OrgName}
	}

	return &domainCard{
		Context: []any{
			"https://www.w3.org/ns/credentials/v2",
			"https://w3id.org/ixo/context/v1",
			map[string]any{
				"schema": "https://schema.org/",
				"ixo":    "https://w3id.org/ixo/vocab/v1",
				"prov":   "http://www.w3.org/ns/prov#",
				"proj":   "https://linked.data.gov.au/def/project#",
				"xsd":    "http://www.w3.org/2001/XMLSchema#",
				"id":     "@id",
				"type":   "@type",
				"ixo:vector": map[string]string{
					"@container": "@list",
					"@type":      "xsd:double",
				},
				"@protected": true,
			},
		},
		ID:        entityDID + "#dmn",
		Type:      []string{"VerifiableCredential", "ixo:DomainCard"},
		Issuer:    idRef{ID: issuerDID},
		ValidFrom: validFrom.UTC().Format("2006-01-02T15:04:05.000Z"),
		CredentialSchema: credentialSchema{
			ID:   "https://github.com/ixoworld/domainCards/schemas/ixo-domain-card-1.json",
			Type: "JsonSchema",
		},
		CredentialSubject: domainCardSubject{
			ID:             entityDID,
			Type:           []string{"ixo:oracle"},
			AdditionalType: []string{"schema:Organization"},
			Name:           p.Name,
			AlternateName:  alternateName,
			Description:    p.Description,
			Logo:           imageObject{Type: "schema:ImageObject", ID: p.Logo, ContentURL: p.Logo},
			Image:          []imageObject{{Type: "schema:ImageObject", ID: p.CoverImage, ContentURL: p.CoverImage}},
			Address:        postalAddress{Type: "schema:PostalAddress", AddressLocality: p.Location},
			URL:            p.URL,
		},
	}
}

// oracleContext is the JSON-LD context shared by the oracle config documents.
func oracleContext(entityDID string) []any {
	return []any{
		"https://schema.org",
		map[string]any{
			"ixo":    "https://w3id.org/ixo/context/v1",
			"oracle": map[string]string{"@id": entityDID, "@type": "@id"},
		},
	}
}

type authZConfig struct {
	Context             []any    `json:"@context"`
	Type                string   `json:"@type"`
	ID                  string   `json:"@id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	ServiceType         string   `json:"serviceType"`
	RequiredPermissions []string `json:"requiredPermissions"`
	GranteeAddress      string   `json:"granteeAddress"`
	GranterAddress      string   `json:"granterAddress"`
	OracleName          string   `json:"oracleName"`
}

// newAuthZConfig describes the claim authorization the oracle account
// needs from entity owners.
func newAuthZConfig(entityDID, oracleAddress, oracleName string) *authZConfig {
	return &authZConfig{
		Context:             oracleContext(entityDID),
		Type:                "Service",
		ID:                  "oracle:OracleAuthorization",
		Name:                "OracleAuthorization",
		Description:         "OracleAuthorization",
		ServiceType:         "OracleClaimAuthorizationService",
		RequiredPermissions: []string{"/ixo.claims.v1beta1.MsgCreateClaimAuthorization"},
		GranteeAddress:      oracleAddress,
		OracleName:          oracleName,
	}
}

type priceSpecification struct {
	Type             string `json:"@type"`
	PriceCurrency    string `json:"priceCurrency"`
	Price            int64  `json:"price"`
	UnitCode         string `json:"unitCode"`
	BillingIncrement int    `json:"billingIncrement"`
	BillingPeriod    string `json:"billingPeriod"`
	PriceType        string `json:"priceType"`
	MaxPrice         int64  `json:"maxPrice"`
}

type quantitativeValue struct {
	Type     string `json:"@type"`
	Value    int    `json:"value"`
	UnitCode string `json:"unitCode"`
}

type offer struct {
	Type               string             `json:"@type"`
	PriceCurrency      string             `json:"priceCurrency"`
	PriceSpecification priceSpecification `json:"priceSpecification"`
	EligibleQuantity   quantitativeValue  `json:"eligibleQuantity"`
}

type pricingList struct {
	Context     []any  `json:"@context"`
	Type        string `json:"@type"`
	ID          string `json:"@id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ServiceType string `json:"serviceType"`
	Offers      offer  `json:"offers"`
}

// newPricingList builds a monthly subscription offer. price is in credits
// and published in uixo.
func newPricingList(entityDID string, price int64, denom string) *pricingList {
	return &pricingList{
		Context:     oracleContext(entityDID),
		Type:        "Service",
		ID:          "oracle:ServiceFeeModel",
		Name:        "Pricing",
		Description: "Pricing",
		Offers: offer{
			Type:          "Offer",
			PriceCurrency: denom,
			PriceSpecification: priceSpecification{
				Type:             "PaymentChargeSpecification",
				PriceCurrency:    denom,
				Price:            price * creditUnit,
				UnitCode:         "MON",
				BillingIncrement: 1,
				BillingPeriod:    "P1M",
				PriceType:        "Subscription",
				MaxPrice:         price,
			},
			EligibleQuantity: quantitativeValue{Type: "QuantitativeValue", Value: 1, UnitCode: "MON"},
		},
	}
}
