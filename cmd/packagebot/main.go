// Package main provides the entry point for the packagebot CLI.
//
// packagebot scans a Portage-style package tree for metadata.xml files and
// creates a wiki page for every category and package that does not have
// one yet.
//
// Usage:
//
//	packagebot run <user> <password> [tree] [endpoint]
//	packagebot history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
