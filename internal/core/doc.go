// Package core provides the extraction logic for workbook calculation reports.
//
// It reads Tableau-style workbook metadata (datasources, columns,
// calculated fields, parameter aliases) and produces a CSV report of every
// calculated field and parameter with internal field names replaced by their
// captions. The package is independent of any transport and is used by both
// the web server and the CLI.
//
// # Extraction
//
// Extraction runs as explicit, pure steps over an immutable [Workbook]:
//
//  1. [ParseDocument] parses the bytes; malformed XML fails here with a
//     [*ParseError] before anything is extracted.
//  2. [ReadWorkbook] flattens every <datasource> and the <column> elements
//     beneath it.
//  3. [BuildNameMap] maps internal names (e.g. Calculation_1) to captions for
//     columns with a <calculation> child.
//  4. [BuildRecords] produces one [Record] per distinct caption, first
//     occurrence wins. The [FieldSource] variant decides label and formula.
//  5. [ResolveFormulas] rewrites Calculated Field formulas through the
//     [NameMap]. Replacement is plain substring substitution.
//
// [Extract] and [ExtractBytes] run the whole pipeline; [WriteReport] writes
// the result as CSV with a UTF-8 byte-order mark.
//
// # Service
//
// [Service] wraps the pipeline for uploads: content-type gating, size
// limits, bounded concurrency ([Limiter]) and temp-file handling through a
// [Store].
//
// # Error Handling
//
// Errors are classified with errors.Is against [ErrInputRejected] and
// [ErrParseFailure]. [MapError] turns them into user messages with codes
// (FILE00x, XML00x, UPL00x, RATE001, ERR000).
package core
