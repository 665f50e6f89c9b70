package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// decodedFields maps field numbers to their raw values. Varints are stored
// in the varints map.
type decodedFields struct {
	bytes   map[protowire.Number][][]byte
	varints map[protowire.Number][]uint64
}

func decodeFields(t *testing.T, b []byte) decodedFields {
	t.Helper()

	out := decodedFields{
		bytes:   map[protowire.Number][][]byte{},
		varints: map[protowire.Number][]uint64{},
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.GreaterOrEqual(t, n, 0, "invalid tag")
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			require.GreaterOrEqual(t, n, 0, "invalid bytes field %d", num)
			out.bytes[num] = append(out.bytes[num], v)
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			require.GreaterOrEqual(t, n, 0, "invalid varint field %d", num)
			out.varints[num] = append(out.varints[num], v)
			b = b[n:]
		default:
			t.Fatalf("unexpected wire type %d for field %d", typ, num)
		}
	}
	return out
}

func (f decodedFields) str(num protowire.Number) string {
	if len(f.bytes[num]) == 0 {
		return ""
	}
	return string(f.bytes[num][0])
}

func TestMsgSendEncoding(t *testing.T) {
	msg := &MsgSend{
		FromAddress: "ixo1from",
		ToAddress:   "ixo1to",
		Amount:      []interfaces.Coin{{Denom: "uixo", Amount: "250000"}},
	}

	fields := decodeFields(t, msg.Marshal())
	assert.Equal(t, "ixo1from", fields.str(1))
	assert.Equal(t, "ixo1to", fields.str(2))
	require.Len(t, fields.bytes[3], 1)

	coin := decodeFields(t, fields.bytes[3][0])
	assert.Equal(t, "uixo", coin.str(1))
	assert.Equal(t, "250000", coin.str(2))
}

func TestMsgCreateIidDocumentEncoding(t *testing.T) {
	msg := &MsgCreateIidDocument{
		ID:            "did:ixo:ixo1abc",
		Controllers:   []string{"did:ixo:ixo1abc"},
		Verifications: SecpVerifications("did:ixo:ixo1abc", "ixo1abc", []byte{0x02, 0x01}, "did:ixo:ixo1abc"),
		Services:      []interfaces.Service{{ID: "{id}#api", Type: "oracleService", ServiceEndpoint: "http://localhost:4000"}},
		Signer:        "ixo1abc",
	}
	assert.Equal(t, "/ixo.iid.v1beta1.MsgCreateIidDocument", msg.TypeURL())

	fields := decodeFields(t, msg.Marshal())
	assert.Equal(t, "did:ixo:ixo1abc", fields.str(1))
	assert.Equal(t, "did:ixo:ixo1abc", fields.str(2))
	assert.Len(t, fields.bytes[4], 2)
	assert.Len(t, fields.bytes[5], 1)
	assert.Equal(t, "ixo1abc", fields.str(10))

	verification := decodeFields(t, fields.bytes[4][1])
	assert.Equal(t, "authentication", verification.str(1))
	method := decodeFields(t, verification.bytes[2][0])
	assert.Equal(t, "did:ixo:ixo1abc#ixo1abc", method.str(1))
	assert.Equal(t, "CosmosAccountAddress", method.str(2))
	assert.Equal(t, "ixo1abc", method.str(4))

	service := decodeFields(t, fields.bytes[5][0])
	assert.Equal(t, "http://localhost:4000", service.str(3))
}

func TestMsgCreateEntityEncoding(t *testing.T) {
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	end := start.AddDate(100, 0, 0)
	msg := &MsgCreateEntity{
		EntityType:   "oracle",
		Context:      []interfaces.Context{{Key: "class", Val: "did:ixo:entity:1a76366f16570483cea72b111b27fd78"}},
		Controller:   []string{"did:ixo:ixo1owner"},
		StartDate:    &start,
		EndDate:      &end,
		RelayerNode:  "did:ixo:entity:2f22535f8b179a51d77a0e302e68d35d",
		OwnerDID:     "did:ixo:ixo1owner",
		OwnerAddress: "ixo1owner",
		LinkedEntity: []interfaces.LinkedEntity{{Type: "agent", ID: "did:ixo:ixo1oracle", Relationship: "admin", Service: "matrix"}},
	}

	fields := decodeFields(t, msg.Marshal())
	assert.Equal(t, "oracle", fields.str(1))
	assert.Empty(t, fields.varints[2], "zero status is omitted")
	assert.Equal(t, "did:ixo:ixo1owner", fields.str(5))
	assert.Equal(t, "did:ixo:entity:2f22535f8b179a51d77a0e302e68d35d", fields.str(12))
	assert.Equal(t, "did:ixo:ixo1owner", fields.str(14))
	assert.Equal(t, "ixo1owner", fields.str(15))

	ctxField := decodeFields(t, fields.bytes[3][0])
	assert.Equal(t, "class", ctxField.str(1))

	startField := decodeFields(t, fields.bytes[10][0])
	assert.Equal(t, []uint64{uint64(start.Unix())}, startField.varints[1])

	linked := decodeFields(t, fields.bytes[9][0])
	assert.Equal(t, "agent", linked.str(1))
	assert.Equal(t, "admin", linked.str(3))
	assert.Equal(t, "matrix", linked.str(4))
}

func TestTxEnvelopeEncoding(t *testing.T) {
	msgs := []interfaces.Msg{
		&MsgAddController{ID: "did:ixo:entity:1", ControllerDID: "did:ixo:ixo1new", Signer: "ixo1owner"},
	}

	body := EncodeTxBody(msgs, "memo")
	bodyFields := decodeFields(t, body)
	require.Len(t, bodyFields.bytes[1], 1)
	assert.Equal(t, "memo", bodyFields.str(2))

	anyField := decodeFields(t, bodyFields.bytes[1][0])
	assert.Equal(t, MsgAddControllerTypeURL, anyField.str(1))
	assert.Equal(t, msgs[0].Marshal(), anyField.bytes[2][0])

	pubKey := make([]byte, 33)
	pubKey[0] = 0x02
	authInfo := EncodeAuthInfo(pubKey, 7, EstimateFee(100000, 1, "ixo1granter"))
	authFields := decodeFields(t, authInfo)

	signerInfo := decodeFields(t, authFields.bytes[1][0])
	assert.Equal(t, []uint64{7}, signerInfo.varints[3])
	pkAny := decodeFields(t, signerInfo.bytes[1][0])
	assert.Equal(t, secp256k1PubKeyTypeURL, pkAny.str(1))

	fee := decodeFields(t, authFields.bytes[2][0])
	assert.Equal(t, []uint64{170000}, fee.varints[2])
	assert.Equal(t, "ixo1granter", fee.str(4))

	signDoc := decodeFields(t, EncodeSignDoc(body, authInfo, "devnet-1", 42))
	assert.Equal(t, body, signDoc.bytes[1][0])
	assert.Equal(t, "devnet-1", signDoc.str(3))
	assert.Equal(t, []uint64{42}, signDoc.varints[4])

	raw := decodeFields(t, EncodeTxRaw(body, authInfo, []byte("sig")))
	assert.Equal(t, [][]byte{[]byte("sig")}, raw.bytes[3])
}
