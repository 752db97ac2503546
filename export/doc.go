// Package export writes finished discussions to disk as JSON documents and
// Markdown transcripts.
//
// File names follow <prefix>_<YYYYMMDD_HHMMSS>; the Markdown form groups
// messages under "### Initial Prompt" and "### Round N" headers.
package export
