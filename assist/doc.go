// Package assist builds prompts for a text-completion service from the
// workspace selection and query results, and parses what comes back.
//
// The completion service itself is an interface (Completer). Assistant calls
// it and never returns an error to its caller: a failed call yields an empty
// Reply whose Message explains the failure, ready to be shown to the user.
//
// Streamed suggestions follow a line protocol:
//
//	DESCRIPTION: total sales per region
//	QUERY: SELECT "region", SUM("sales") FROM "sales_data" GROUP BY "region";
//	===END_SUGGESTION===
//
// StreamParser accepts the stream in chunks of any size.
package assist
