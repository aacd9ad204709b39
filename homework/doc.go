// Package homework holds the review-API domain: submission statuses, the
// verdict table, payload validation and translation of a submission record
// into a notification message.
//
// Everything here is pure and side-effect free. Payloads are handled as
// decoded JSON values (map[string]any, []any) so that shape problems can be
// reported precisely:
//
//	payload, err := homework.DecodePayload(body)
//	works, err := homework.CheckResponse(payload)
//	if len(works) > 0 {
//	    msg, err := homework.ParseStatus(works[0])
//	}
//
// Every failure is a [*Error] whose [Kind] can be matched with [errors.Is]
// against the exported sentinels or extracted with [KindOf].
package homework
