// Package policy evaluates the two decisions a bot makes per incoming event:
// whether a candidate post passes the configured filters, and whether a
// caller may run an administrator command.
//
// Neither decision is an error. A denied command, a domain outside the
// whitelist and a score below the threshold are ordinary false results the
// caller branches on. Errors are reserved for configuration defects, such as
// an empty list of rejection messages.
//
// Command authorization is a two-step chain:
//
//	if commands.Allows("blacklist").ByUser(author).Allowed() {
//		reply, err := commands.Func("blacklist")(ctx, author, body, id)
//	}
//
// Handlers are plain function values registered by the embedding process in
// a Registry; commands.json only names the registry key to use.
package policy
