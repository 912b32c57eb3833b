package bot

// Status emoji of the THESEUS support server.
const (
	emojiOK      = "<:B_online:773702309414043658>"
	emojiFail    = "<:B_down:773702309364367420>"
	emojiPartial = "<:B_partial:773702309245878304>"
)

const (
	msgUnexpected     = emojiFail + " An unexpected error occurred! Try again later."
	msgGuildOnly      = emojiFail + " This command can only be used in a server."
	msgNoSubcommand   = emojiFail + " Please specify a sub-command!"
	msgNoGroup        = emojiFail + " Please specify a group!"
	msgNoUser         = emojiFail + " Please specify a user!"
	msgNoUsers        = emojiFail + " Please specify at least one user!"
	msgTooFast        = emojiFail + " You're doing that too fast. Try again in a moment."
	msgAdminsOnly     = emojiFail + " Only guild admins can do that!"
	msgDevelopersOnly = emojiFail + " Only bot developers can do that!"
)
