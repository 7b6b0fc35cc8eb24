// Package model defines the data structures shared by packagebot's packages.
//
// This package contains the following main types:
//   - Discovery: one located metadata.xml file and its classification
//   - Record: the parsed form of a discovery, either a Category or a Package
//   - Document: the subset of a metadata.xml file packagebot understands
//   - RunReport: everything a single harvest-and-publish run did
//
// Models live in their own package so the scanner, the worker pool, the wiki
// publisher, the history database and the report writers can share them
// without import cycles. Everything except parsed documents is serializable
// to JSON for reports and the history database.
package model
