// Package cryptoutils provides the key material and cipher operations used to
// provision an oracle identity.
//
// # Account Keys
//
// Accounts are BIP-39 mnemonics derived along m/44'/118'/0'/0/0 to a
// secp256k1 key. The address is bech32("ixo", ripemd160(sha256(pubkey))) and
// the account DID is did:ixo:<address>.
//
// # ECIES
//
// Passwords sent to the room bot are encrypted for its secp256k1 public key:
//
//   - ECDH over secp256k1 with a fresh ephemeral key
//   - HKDF-SHA256 over ephemeral key || shared point (both uncompressed)
//   - AES-256-GCM with a 16 byte nonce
//
// The envelope is:
//
//	[ephemeral key (65 bytes)][nonce (16 bytes)][tag (16 bytes)][ciphertext]
//
// # PIN Cipher
//
// The Matrix mnemonic stored in the private room is AES-256-CBC encrypted
// under the space padded PIN and serialized as hex(iv):hex(ciphertext).
//
// # Derivations
//
// Matrix usernames, passwords, recovery passphrases and room aliases are pure
// functions of the account address and mnemonic so they can be re-derived
// without storage.
package cryptoutils
