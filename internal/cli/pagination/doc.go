// Package pagination turns the list command's paging flags into a
// listing.PageRequest and describes the returned page for structured output.
//
// Pages are one-based on the command line and zero-based on the wire.
package pagination
