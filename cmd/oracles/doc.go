// Package main (cmd/oracles) is the command line front end of the oracle
// provisioner. An operator logs in once with the IXO app through SignX; the
// login is cached in a wallet file and authorizes every later transaction.
//
//	oracles login
//	oracles create-entity -i oracle.yaml --pin 123456 --result-store file:///var/lib/oracles
//	oracles update-entity add-controller --entity-did did:ixo:entity:... --controller-did did:ixo:ixo1...
//	oracles decrypt-mnemonic --pin 123456 --result result.json
//
// Every provisioning command prints its result record as JSON on stdout,
// also when it fails part way. The record holds the only copy of the
// generated secrets and can be passed to --resume to continue the run.
package main
