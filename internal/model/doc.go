// Package model holds the VPCR domain types shared by the store, the import
// pipeline and the engine facade.
package model
