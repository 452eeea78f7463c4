// Package content reads the file-per-entity content store that drives the
// generated site:
//
//	books/<category>/<slug>.json
//	books/_categories.json
//	authors/<slug>.json
//	topics/<slug>.json
//	changelog.yaml
//
// Repository accessors never return errors: unreadable or malformed files are
// treated as absent and logged at debug level. Audit performs the same scan
// strictly and reports which files are missing and which are malformed.
// Quality, similarity and reference checks back the validate command.
package content
