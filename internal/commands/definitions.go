package commands

import "github.com/bwmarrin/discordgo"

func tierOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "tier",
		Description: "難易度",
		Required:    required,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "easy (現在地の近く)", Value: "easy"},
			{Name: "medium (アジア)", Value: "medium"},
			{Name: "hard (世界)", Value: "hard"},
		},
	}
}

func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         "geo",
			Description:  "ストリートビューで場所当てゲーム",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "新しいラウンドを開始します",
					Options:     []*discordgo.ApplicationCommandOption{tierOption(true)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "guess",
					Description: "Google Maps の URL で推測を送信します",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "Google Maps の URL (短縮URL可) または 緯度,経度",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "giveup",
					Description: "現在のラウンドを諦めます (0点)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leaderboard",
					Description: "ランキングを表示します",
					Options:     []*discordgo.ApplicationCommandOption{tierOption(true)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "rank",
					Description: "自分の順位を表示します",
					Options:     []*discordgo.ApplicationCommandOption{tierOption(true)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "profile",
					Description: "自分の成績を表示します",
				},
			},
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
