// Package notion normalises Notion API responses into flat, line-oriented
// text for chunking.
//
// Each output line carries the Notion ID of the element it came from and is
// indented two spaces per nesting level:
//
//	[page-id] Roadmap
//	  [prop-id] Status: In progress
//	[block-id] # Goals
//	[block-id] Goals > Ship the sync pipeline
//	  [child-id] Goals > - index every workspace
//
// Once a heading is seen, later lines carry it as a prefix until a heading
// of the same or higher rank replaces it. Output is bounded: when it would
// exceed the configured length, the last section is dropped whole and
// TruncationMarker is appended. Nesting beyond the depth bound is replaced
// by DepthLimitMarker.
package notion
