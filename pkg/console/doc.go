// Package console provides the canonical types shared by every layer of the
// admin console: the signed-in profile, the resource entities, the
// normalized list contract and the error taxonomy.
//
// # Canonical list contract
//
// Every list endpoint of the backend answers with a different envelope. The
// normalizer turns each of them into ListResult, so list consumers are written
// once against
//
//	{items: [...], pagination: {page, limit, total, totalPages}}
//
// with totalPages always equal to ceil(total/limit).
//
// # Relations
//
// Relation fields (a mentor's career fields, a mission's career fields, a
// milestone's missions) may arrive as bare identifiers or as embedded objects.
// Relation decodes both forms and PrimaryID extracts the first identifier
// regardless of form:
//
//	field := console.PrimaryID(mentor.CareerFields)
//
// # Errors
//
// Errors are classified into four types:
//
//   - validation: client-side required field checks, raised before any network call
//   - authorization: insufficient role or an expired session
//   - malformed_response: an envelope the normalizer does not recognize
//   - transport: network or server failures, carrying the best available message
//
// Use the Is* helpers to branch on the type:
//
//	if _, err := users.Create(ctx, user); err != nil {
//		switch {
//		case console.IsValidationError(err):
//			// show inline, nothing was sent
//		case console.IsSessionExpired(err):
//			// the session manager already redirected
//		default:
//			// show err.Error() next to the list
//		}
//	}
package console
