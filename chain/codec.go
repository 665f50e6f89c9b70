package chain

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// protoMessage accumulates the wire encoding of a protobuf message. Zero
// values are skipped, matching proto3 serialization, so the output is
// byte-identical to what the chain's generated code produces.
type protoMessage struct {
	b []byte
}

func (m *protoMessage) String(num protowire.Number, s string) {
	if s == "" {
		return
	}
	m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
	m.b = protowire.AppendString(m.b, s)
}

func (m *protoMessage) Strings(num protowire.Number, ss []string) {
	for _, s := range ss {
		m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
		m.b = protowire.AppendString(m.b, s)
	}
}

func (m *protoMessage) Bytes(num protowire.Number, b []byte) {
	if len(b) == 0 {
		return
	}
	m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
	m.b = protowire.AppendBytes(m.b, b)
}

func (m *protoMessage) Uint64(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	m.b = protowire.AppendTag(m.b, num, protowire.VarintType)
	m.b = protowire.AppendVarint(m.b, v)
}

func (m *protoMessage) Int32(num protowire.Number, v int32) {
	m.Uint64(num, uint64(int64(v)))
}

// Message embeds an already encoded sub-message. Empty sub-messages are
// still emitted when force is set, since presence matters for some fields.
func (m *protoMessage) Message(num protowire.Number, sub []byte, force bool) {
	if len(sub) == 0 && !force {
		return
	}
	m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
	m.b = protowire.AppendBytes(m.b, sub)
}

func (m *protoMessage) Encode() []byte {
	return m.b
}

func encodeAny(typeURL string, value []byte) []byte {
	var m protoMessage
	m.String(1, typeURL)
	m.Bytes(2, value)
	return m.Encode()
}

func encodeCoin(c interfaces.Coin) []byte {
	var m protoMessage
	m.String(1, c.Denom)
	m.String(2, c.Amount)
	return m.Encode()
}

func encodeTimestamp(t time.Time) []byte {
	var m protoMessage
	m.Uint64(1, uint64(t.Unix()))
	m.Int32(2, int32(t.Nanosecond()))
	return m.Encode()
}

func encodeVerificationMethod(vm interfaces.VerificationMethod) []byte {
	var m protoMessage
	m.String(1, vm.ID)
	m.String(2, vm.Type)
	m.String(3, vm.Controller)
	m.String(4, vm.BlockchainAccountID)
	m.String(5, vm.PublicKeyHex)
	m.String(6, vm.PublicKeyMultibase)
	return m.Encode()
}

func encodeVerification(v interfaces.Verification) []byte {
	var m protoMessage
	m.Strings(1, v.Relationships)
	m.Message(2, encodeVerificationMethod(v.Method), true)
	m.Strings(3, v.Context)
	return m.Encode()
}

func encodeService(s interfaces.Service) []byte {
	var m protoMessage
	m.String(1, s.ID)
	m.String(2, s.Type)
	m.String(3, s.ServiceEndpoint)
	return m.Encode()
}

func encodeLinkedResource(r interfaces.LinkedResource) []byte {
	var m protoMessage
	m.String(1, r.Type)
	m.String(2, r.ID)
	m.String(3, r.Description)
	m.String(4, r.MediaType)
	m.String(5, r.ServiceEndpoint)
	m.String(6, r.Proof)
	m.String(7, r.Encrypted)
	m.String(8, r.Right)
	return m.Encode()
}

func encodeLinkedEntity(e interfaces.LinkedEntity) []byte {
	var m protoMessage
	m.String(1, e.Type)
	m.String(2, e.ID)
	m.String(3, e.Relationship)
	m.String(4, e.Service)
	return m.Encode()
}

func encodeContext(c interfaces.Context) []byte {
	var m protoMessage
	m.String(1, c.Key)
	m.String(2, c.Val)
	return m.Encode()
}

// EncodeTxBody encodes msgs and memo as a cosmos TxBody. SignX expects the
// hex form of exactly these bytes.
func EncodeTxBody(msgs []interfaces.Msg, memo string) []byte {
	var m protoMessage
	for _, msg := range msgs {
		m.Message(1, encodeAny(msg.TypeURL(), msg.Marshal()), true)
	}
	m.String(2, memo)
	return m.Encode()
}

// Fee is the fee section of a transaction.
type Fee struct {
	Amount   []interfaces.Coin
	GasLimit uint64
	Payer    string
	Granter  string
}

func encodeFee(f Fee) []byte {
	var m protoMessage
	for _, c := range f.Amount {
		m.Message(1, encodeCoin(c), true)
	}
	m.Uint64(2, f.GasLimit)
	m.String(3, f.Payer)
	m.String(4, f.Granter)
	return m.Encode()
}

const (
	secp256k1PubKeyTypeURL = "/cosmos.crypto.secp256k1.PubKey"
	signModeDirect         = 1
)

// EncodeAuthInfo encodes a single SIGN_MODE_DIRECT signer with a compressed
// secp256k1 public key.
func EncodeAuthInfo(pubKey []byte, sequence uint64, fee Fee) []byte {
	var key protoMessage
	key.Bytes(1, pubKey)

	var single protoMessage
	single.Uint64(1, signModeDirect)

	var modeInfo protoMessage
	modeInfo.Message(1, single.Encode(), true)

	var signerInfo protoMessage
	signerInfo.Message(1, encodeAny(secp256k1PubKeyTypeURL, key.Encode()), true)
	signerInfo.Message(2, modeInfo.Encode(), true)
	signerInfo.Uint64(3, sequence)

	var m protoMessage
	m.Message(1, signerInfo.Encode(), true)
	m.Message(2, encodeFee(fee), true)
	return m.Encode()
}

// EncodeSignDoc returns the bytes covered by a SIGN_MODE_DIRECT signature.
func EncodeSignDoc(bodyBytes, authInfoBytes []byte, chainID string, accountNumber uint64) []byte {
	var m protoMessage
	m.Bytes(1, bodyBytes)
	m.Bytes(2, authInfoBytes)
	m.String(3, chainID)
	m.Uint64(4, accountNumber)
	return m.Encode()
}

// EncodeTxRaw assembles the broadcastable transaction.
func EncodeTxRaw(bodyBytes, authInfoBytes []byte, signatures ...[]byte) []byte {
	var m protoMessage
	m.Bytes(1, bodyBytes)
	m.Bytes(2, authInfoBytes)
	for _, sig := range signatures {
		m.b = protowire.AppendTag(m.b, 3, protowire.BytesType)
		m.b = protowire.AppendBytes(m.b, sig)
	}
	return m.Encode()
}
