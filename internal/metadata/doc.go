// Package metadata turns discovered metadata.xml files into records.
package metadata
