package bot

import "github.com/bwmarrin/discordgo"

func groupOpt(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "group",
		Description: description,
		Required:    true,
		MaxLength:   100,
	}
}

func userOpt(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    required,
	}
}

func subcommand(name, description string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     opts,
	}
}

// Commands returns the application commands the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	guildOnly := false
	return []*discordgo.ApplicationCommand{
		{
			Name:         "tag",
			Description:  "Manage tag groups.",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("join", "Join a group, or create a tag group if one doesn't already exist.",
					groupOpt("The group to join / create.")),
				subcommand("leave", "Leave a group.",
					groupOpt("The group to leave.")),
				subcommand("all", "List all the tags."),
				subcommand("ping", "Pings all the members of a given tag.",
					groupOpt("The group to ping.")),
				subcommand("add", "Add users to a tag.",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "users",
						Description: "The users to add to the tag (mentions).",
						Required:    true,
					},
					groupOpt("The group to add the users to.")),
				subcommand("members", "Lists all the users under a tag.",
					groupOpt("The group to list.")),
				subcommand("list", "Lists all the tags a user is a part of.",
					userOpt("The user to list tags for.", false)),
			},
		},
		{
			Name:         "admins",
			Description:  "Manage guild admins.",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("grant", "Make a user a guild admin.",
					userOpt("The user to grant.", true)),
				subcommand("revoke", "Remove a user from the guild admins.",
					userOpt("The user to revoke.", true)),
				subcommand("list", "List the guild admins."),
			},
		},
	}
}
