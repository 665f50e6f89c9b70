package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

func TestEncodeDocument(t *testing.T) {
	data, err := encodeDocument(map[string]string{"description": "<b>R&D</b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"description":"<b>R&D</b>"}`, string(data))
}

func TestDomainCard(t *testing.T) {
	p := testParams().Profile

	card := newDomainCard(p, testEntityDID, "did:ixo:ixo1issuer", testNow)
	assert.Equal(t, testEntityDID+"#dmn", card.ID)
	assert.Equal(t, "2025-03-01T12:00:00.000Z", card.ValidFrom)
	assert.Equal(t, []string{"IXO"}, card.CredentialSubject.AlternateName)

	p.OrgName = p.Name
	card = newDomainCard(p, testEntityDID, "did:ixo:ixo1issuer", testNow)
	assert.Nil(t, card.CredentialSubject.AlternateName)

	data, err := encodeDocument(card)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	subject := decoded["credentialSubject"].(map[string]any)
	assert.NotContains(t, subject, "alternateName")
	assert.NotContains(t, subject, "url")
	assert.Equal(t, "did:ixo:ixo1issuer", decoded["issuer"].(map[string]any)["id"])
}

func TestPricingList(t *testing.T) {
	list := newPricingList(testEntityDID, 25, "uixo")
	spec := list.Offers.PriceSpecification
	assert.Equal(t, int64(25_000), spec.Price)
	assert.Equal(t, int64(25), spec.MaxPrice)
	assert.Equal(t, "uixo", spec.PriceCurrency)
	assert.Equal(t, "P1M", spec.BillingPeriod)

	data, err := encodeDocument(list)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	ctx := decoded["@context"].([]any)
	oracle := ctx[1].(map[string]any)["oracle"].(map[string]any)
	assert.Equal(t, testEntityDID, oracle["@id"])
}

func TestAuthZConfig(t *testing.T) {
	cfg := newAuthZConfig(testEntityDID, "ixo1oracle", "Test Oracle")
	assert.Equal(t, "ixo1oracle", cfg.GranteeAddress)
	assert.Empty(t, cfg.GranterAddress)
	assert.Equal(t, []string{"/ixo.claims.v1beta1.MsgCreateClaimAuthorization"}, cfg.RequiredPermissions)
}

func TestUploadedLinkedResource(t *testing.T) {
	data := []byte(`{"a":1}`)
	up := &Uploaded{MXC: "mxc://localhost/x", Endpoint: "http://localhost/x", Proof: interfaces.ComputeID(data)}

	res := up.LinkedResource("orz", "oracleAuthZConfig", "Oracle AuthZ Config")
	assert.Equal(t, "{id}#orz", res.ID)
	assert.Equal(t, "application/json", res.MediaType)
	assert.Equal(t, "false", res.Encrypted)

	proof, err := interfaces.ParseContentID(res.Proof)
	require.NoError(t, err)
	assert.True(t, proof.Verify(data))
}
