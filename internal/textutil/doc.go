// Package textutil holds small string helpers shared by packages that derive
// file system names from external identifiers.
package textutil
