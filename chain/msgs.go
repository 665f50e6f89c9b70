package chain

import (
	"time"

	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// Type URLs of the messages built by the provisioner.
const (
	MsgSendTypeURL              = "/cosmos.bank.v1beta1.MsgSend"
	MsgCreateIidDocumentTypeURL = "/ixo.iid.v1beta1.MsgCreateIidDocument"
	MsgAddLinkedResourceTypeURL = "/ixo.iid.v1beta1.MsgAddLinkedResource"
	MsgAddControllerTypeURL     = "/ixo.iid.v1beta1.MsgAddController"
	MsgCreateEntityTypeURL      = "/ixo.entity.v1beta1.MsgCreateEntity"
)

// MsgSend transfers coins between accounts.
type MsgSend struct {
	FromAddress string
	ToAddress   string
	Amount      []interfaces.Coin
}

func (msg *MsgSend) TypeURL() string { return MsgSendTypeURL }

func (msg *MsgSend) Marshal() []byte {
	var m protoMessage
	m.String(1, msg.FromAddress)
	m.String(2, msg.ToAddress)
	for _, c := range msg.Amount {
		m.Message(3, encodeCoin(c), true)
	}
	return m.Encode()
}

// MsgCreateIidDocument creates a DID document.
type MsgCreateIidDocument struct {
	ID              string
	Controllers     []string
	Context         []interfaces.Context
	Verifications   []interfaces.Verification
	Services        []interfaces.Service
	LinkedResources []interfaces.LinkedResource
	LinkedEntities  []interfaces.LinkedEntity
	AlsoKnownAs     string
	Signer          string
}

func (msg *MsgCreateIidDocument) TypeURL() string { return MsgCreateIidDocumentTypeURL }

func (msg *MsgCreateIidDocument) Marshal() []byte {
	var m protoMessage
	m.String(1, msg.ID)
	m.Strings(2, msg.Controllers)
	for _, c := range msg.Context {
		m.Message(3, encodeContext(c), true)
	}
	for _, v := range msg.Verifications {
		m.Message(4, encodeVerification(v), true)
	}
	for _, s := range msg.Services {
		m.Message(5, encodeService(s), true)
	}
	for _, r := range msg.LinkedResources {
		m.Message(7, encodeLinkedResource(r), true)
	}
	for _, e := range msg.LinkedEntities {
		m.Message(8, encodeLinkedEntity(e), true)
	}
	m.String(9, msg.AlsoKnownAs)
	m.String(10, msg.Signer)
	return m.Encode()
}

// MsgAddLinkedResource attaches a linked resource to an existing DID document.
type MsgAddLinkedResource struct {
	ID             string
	LinkedResource interfaces.LinkedResource
	Signer         string
}

func (msg *MsgAddLinkedResource) TypeURL() string { return MsgAddLinkedResourceTypeURL }

func (msg *MsgAddLinkedResource) Marshal() []byte {
	var m protoMessage
	m.String(1, msg.ID)
	m.Message(2, encodeLinkedResource(msg.LinkedResource), true)
	m.String(3, msg.Signer)
	return m.Encode()
}

// MsgAddController adds a controller DID to an existing DID document.
type MsgAddController struct {
	ID            string
	ControllerDID string
	Signer        string
}

func (msg *MsgAddController) TypeURL() string { return MsgAddControllerTypeURL }

func (msg *MsgAddController) Marshal() []byte {
	var m protoMessage
	m.String(1, msg.ID)
	m.String(2, msg.ControllerDID)
	m.String(3, msg.Signer)
	return m.Encode()
}

// MsgCreateEntity creates an entity. The chain mints the entity DID and
// reports it in the token_id attribute of the wasm event.
type MsgCreateEntity struct {
	EntityType     string
	EntityStatus   int32
	Context        []interfaces.Context
	Verification   []interfaces.Verification
	Controller     []string
	Service        []interfaces.Service
	LinkedResource []interfaces.LinkedResource
	LinkedEntity   []interfaces.LinkedEntity
	StartDate      *time.Time
	EndDate        *time.Time
	RelayerNode    string
	OwnerDID       string
	OwnerAddress   string
}

func (msg *MsgCreateEntity) TypeURL() string { return MsgCreateEntityTypeURL }

func (msg *MsgCreateEntity) Marshal() []byte {
	var m protoMessage
	m.String(1, msg.EntityType)
	m.Int32(2, msg.EntityStatus)
	for _, c := range msg.Context {
		m.Message(3, encodeContext(c), true)
	}
	for _, v := range msg.Verification {
		m.Message(4, encodeVerification(v), true)
	}
	m.Strings(5, msg.Controller)
	for _, s := range msg.Service {
		m.Message(6, encodeService(s), true)
	}
	for _, r := range msg.LinkedResource {
		m.Message(8, encodeLinkedResource(r), true)
	}
	for _, e := range msg.LinkedEntity {
		m.Message(9, encodeLinkedEntity(e), true)
	}
	if msg.StartDate != nil {
		m.Message(10, encodeTimestamp(*msg.StartDate), true)
	}
	if msg.EndDate != nil {
		m.Message(11, encodeTimestamp(*msg.EndDate), true)
	}
	m.String(12, msg.RelayerNode)
	m.String(14, msg.OwnerDID)
	m.String(15, msg.OwnerAddress)
	return m.Encode()
}

// SecpVerifications returns the verification methods of a secp256k1
// account DID: the public key and the account address binding.
func SecpVerifications(did, address string, pubKey []byte, controller string) []interfaces.Verification {
	return []interfaces.Verification{
		{
			Relationships: []string{"authentication"},
			Method: interfaces.VerificationMethod{
				ID:                 did,
				Type:               "EcdsaSecp256k1VerificationKey2019",
				Controller:         controller,
				PublicKeyMultibase: cryptoutils.PublicKeyMultibase(pubKey),
			},
		},
		{
			Relationships: []string{"authentication"},
			Method: interfaces.VerificationMethod{
				ID:                  did + "#" + address,
				Type:                "CosmosAccountAddress",
				Controller:          controller,
				BlockchainAccountID: address,
			},
		},
	}
}

// Ed25519Verifications returns the verification methods of an ed25519
// wallet DID.
func Ed25519Verifications(did, address string, pubKey []byte, controller string) []interfaces.Verification {
	return []interfaces.Verification{
		{
			Relationships: []string{"authentication"},
			Method: interfaces.VerificationMethod{
				ID:                 did,
				Type:               "Ed25519VerificationKey2018",
				Controller:         controller,
				PublicKeyMultibase: cryptoutils.PublicKeyMultibase(pubKey),
			},
		},
		{
			Relationships: []string{"authentication"},
			Method: interfaces.VerificationMethod{
				ID:                  did + "#" + address,
				Type:                "CosmosAccountAddress",
				Controller:          controller,
				BlockchainAccountID: address,
			},
		},
	}
}

// WalletVerifications picks the verification methods matching the key type
// of a SignX wallet.
func WalletVerifications(wallet *interfaces.Wallet) ([]interfaces.Verification, error) {
	pubKey, err := wallet.PubKeyBytes()
	if err != nil {
		return nil, err
	}
	if wallet.KeyType() == "ed" {
		return Ed25519Verifications(wallet.DID, wallet.Address, pubKey, wallet.DID), nil
	}
	return SecpVerifications(wallet.DID, wallet.Address, pubKey, wallet.DID), nil
}
