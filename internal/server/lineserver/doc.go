// Package lineserver provides the text protocol server for BloomGate.
//
// The protocol is line-based: one command per line, one response line per
// command. Lines end with '\n'; a preceding '\r' is accepted and ignored.
// Commands:
//
//	create <name> [capacity] [fpp]
//	set <name> <key>
//	check <name> <key>
//	clear <name>
//	info <name>
//
// Responses are single tokens (OK, TRUE, FALSE, NOT_FOUND, ALREADY_EXISTS,
// INVALID_PARAMETER) or, for info, a space-separated key=value line. An
// unparseable line gets "MALFORMED_COMMAND <reason>" and the connection
// stays open.
package lineserver
