package commands

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"github.com/susu3304/geoguess/internal/finder"
	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/geourl"
	"github.com/susu3304/geoguess/internal/leaderboard"
	"github.com/susu3304/geoguess/internal/ledger"
	"github.com/susu3304/geoguess/internal/round"
	"github.com/susu3304/geoguess/internal/stats"
)

const startTimeout = 60 * time.Second

var logger = log.WithField("prefix", "bot")

// Geo serves the /geo slash command.
type Geo struct {
	Rounds    *round.Controller
	Board     *leaderboard.Aggregator
	Stats     *stats.Service
	Sessions  *Sessions
	Reference game.Coordinate
	Expander  *geourl.Expander
}

func (g *Geo) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondText(s, i, "サブコマンドが指定されていません")
		return
	}
	user := interactionUser(i)
	if user == nil {
		respondText(s, i, "ユーザーの取得に失敗しました")
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case "start":
		g.handleStart(s, i, user, sub)
	case "guess":
		g.handleGuess(s, i, user, sub)
	case "giveup":
		g.handleGiveUp(s, i, user)
	case "leaderboard":
		g.handleLeaderboard(s, i, sub)
	case "rank":
		g.handleRank(s, i, user, sub)
	case "profile":
		g.handleProfile(s, i, user)
	default:
		respondText(s, i, "未知のサブコマンドです")
	}
}

func parseTierOption(sub *discordgo.ApplicationCommandInteractionDataOption) (game.Tier, bool) {
	opt := getStringOption(sub.Options, "tier")
	if opt == nil {
		return "", false
	}
	tier, err := game.ParseTier(*opt)
	return tier, err == nil
}

// activeRound returns the user's open round in the channel, if any.
func (g *Geo) activeRound(channelID, userID string) (round.State, bool) {
	id, ok := g.Sessions.Lookup(channelID, userID)
	if !ok {
		return round.State{}, false
	}
	st, ok := g.Rounds.Get(id)
	if !ok || !st.Open() {
		g.Sessions.Release(id)
		return round.State{}, false
	}
	return st, true
}

func (g *Geo) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate, user *discordgo.User, sub *discordgo.ApplicationCommandInteractionDataOption) {
	tier, ok := parseTierOption(sub)
	if !ok {
		respondText(s, i, "難易度は easy / medium / hard から選んでください")
		return
	}
	if st, ok := g.activeRound(i.ChannelID, user.ID); ok {
		respondText(s, i, "このチャンネルには既にあなたのラウンドがあります\n📷 "+PanoURL(st.Panorama.PanoID))
		return
	}

	// Finding a panorama can take a few seconds
	if err := respondDeferred(s, i); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	st, err := g.Rounds.Start(ctx, user.Username, tier, g.Reference)
	if err != nil {
		if errors.Is(err, finder.ErrLocationNotFound) {
			editText(s, i, "ストリートビューのある場所が見つかりませんでした。もう一度お試しください")
		} else {
			logger.Errorf("start round for %s: %v", user.Username, err)
			editText(s, i, "ラウンドの開始に失敗しました: "+err.Error())
		}
		return
	}
	g.Sessions.Bind(i.ChannelID, user.ID, st.ID)
	editText(s, i, RenderStart(user.ID, st))
}

func (g *Geo) handleGuess(s *discordgo.Session, i *discordgo.InteractionCreate, user *discordgo.User, sub *discordgo.ApplicationCommandInteractionDataOption) {
	urlOpt := getStringOption(sub.Options, "url")
	if urlOpt == nil {
		respondText(s, i, "URLの指定が必要です")
		return
	}
	st, ok := g.activeRound(i.ChannelID, user.ID)
	if !ok {
		respondText(s, i, "このチャンネルにはあなたのラウンドがありません\n`/geo start` で開始してください")
		return
	}

	// URL expansion might take time
	if err := respondDeferred(s, i); err != nil {
		return
	}

	ctx := context.Background()
	coord, _, err := g.Expander.ExpandAndExtractCoords(ctx, *urlOpt)
	if err != nil {
		editText(s, i, "座標の抽出に失敗しました: "+err.Error())
		return
	}

	out, err := g.Rounds.Guess(ctx, st.ID, user.Username, coord)
	g.finishRound(s, i, user, st.ID, out, err)
}

func (g *Geo) handleGiveUp(s *discordgo.Session, i *discordgo.InteractionCreate, user *discordgo.User) {
	st, ok := g.activeRound(i.ChannelID, user.ID)
	if !ok {
		respondText(s, i, "このチャンネルにはあなたのラウンドがありません")
		return
	}
	if err := respondDeferred(s, i); err != nil {
		return
	}
	out, err := g.Rounds.Timeout(context.Background(), st.ID, user.Username)
	g.finishRound(s, i, user, st.ID, out, err)
}

func (g *Geo) finishRound(s *discordgo.Session, i *discordgo.InteractionCreate, user *discordgo.User, roundID string, out round.Outcome, err error) {
	switch {
	case err == nil:
		g.Sessions.Release(roundID)
		editText(s, i, RenderOutcome(user.ID, out))
	case errors.Is(err, round.ErrRoundClosed), errors.Is(err, round.ErrRoundNotFound):
		g.Sessions.Release(roundID)
		editText(s, i, "このラウンドは既に終了しています")
	case errors.Is(err, round.ErrInvalidGuess):
		editText(s, i, "座標が範囲外です")
	case errors.Is(err, ledger.ErrStorage):
		// keep the session so the player can retry the save
		logger.Errorf("record round %s: %v", roundID, err)
		editText(s, i, "結果の保存に失敗しました\n`/geo guess` か `/geo giveup` でもう一度実行すると最初の結果を保存し直します")
	default:
		editText(s, i, "推測の処理に失敗しました: "+err.Error())
	}
}

func (g *Geo) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	tier, ok := parseTierOption(sub)
	if !ok {
		respondText(s, i, "難易度は easy / medium / hard から選んでください")
		return
	}
	entries, err := g.Board.TopN(context.Background(), tier, leaderboard.DefaultSize)
	if err != nil {
		logger.Errorf("leaderboard %s: %v", tier, err)
		respondText(s, i, "ランキングの取得に失敗しました")
		return
	}
	respondText(s, i, RenderLeaderboard(tier, entries))
}

func (g *Geo) handleRank(s *discordgo.Session, i *discordgo.InteractionCreate, user *discordgo.User, sub *discordgo.ApplicationCommandInteractionDataOption) {
	tier, ok := parseTierOption(sub)
	if !ok {
		respondText(s, i, "難易度は easy / medium / hard から選んでください")
		return
	}
	rank, ranked, err := g.Board.RankOf(context.Background(), user.Username, tier)
	if err != nil {
		logger.Errorf("rank %s/%s: %v", tier, user.Username, err)
		respondText(s, i, "順位の取得に失敗しました")
		return
	}
	respondText(s, i, RenderRank(tier, rank, ranked))
}

func (g *Geo) handleProfile(s *discordgo.Session, i *discordgo.InteractionCreate, user *discordgo.User) {
	p, err := g.Stats.Profile(context.Background(), user.Username)
	if err != nil {
		logger.Errorf("profile %s: %v", user.Username, err)
		respondText(s, i, "成績の取得に失敗しました")
		return
	}
	respondText(s, i, RenderProfile(p))
}
