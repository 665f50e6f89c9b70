// Package common holds process wide settings shared by the commands.
package common

var (
	// Version is set at build time through -ldflags.
	Version = "dev"

	// PackageName prefixes metric names.
	PackageName = "oracle_provisioner"
)
