package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/susu3304/geoguess/internal/game"
	"github.com/susu3304/geoguess/internal/geoscore"
	"github.com/susu3304/geoguess/internal/leaderboard"
	"github.com/susu3304/geoguess/internal/round"
	"github.com/susu3304/geoguess/internal/stats"
)

const panoURLFormat = "https://www.google.com/maps/@?api=1&map_action=pano&pano=%s"

func PanoURL(panoID string) string {
	return fmt.Sprintf(panoURLFormat, panoID)
}

func RenderStart(userID string, s round.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌏 <@%s> のラウンドを開始しました！ (難易度: **%s**)\n", userID, s.Tier)
	fmt.Fprintf(&b, "📷 %s\n", PanoURL(s.Panorama.PanoID))
	fmt.Fprintf(&b, "⏱️ 制限時間: %d秒 (<t:%d:R> に締め切り)\n", int(s.Deadline.Sub(s.StartedAt)/time.Second), s.Deadline.Unix())
	b.WriteString("`/geo guess <Google Maps URL>` で推測を送信してください")
	return b.String()
}

func RenderOutcome(userID string, o round.Outcome) string {
	var b strings.Builder
	title := o.Title()
	if o.TimedOut() {
		fmt.Fprintf(&b, "⏰ <@%s> 時間切れ！ **0点**\n", userID)
	} else {
		fmt.Fprintf(&b, "%s **%s** <@%s> **%d点**\n", title.Emoji, title.Title, userID, o.Points())
		if d := o.GuessRecord.DistanceKm; d != nil {
			fmt.Fprintf(&b, "📏 距離: %s (%s)\n", geoscore.FormatDistance(*d), geoscore.DistanceFeedback(*d))
		}
	}

	actual := o.GuessRecord.Actual
	if o.Address != "" {
		fmt.Fprintf(&b, "📍 正解: %s\n", o.Address)
	}
	fmt.Fprintf(&b, "🗺️ %s\n", geoscore.MapsURL(actual))

	if o.Ranked {
		fmt.Fprintf(&b, "%s (%s: %d位 / %d人, 合計 %d点)",
			leaderboard.RankingMessage(o.Rank.Position, o.Rank.Total),
			o.Round.Tier, o.Rank.Position, o.Rank.Total, o.Rank.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderLeaderboard(tier game.Tier, entries []game.LeaderboardEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("🏆 %s のランキングにはまだ記録がありません", tier)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 **%s ランキング** (上位%d名)\n```\n", tier, len(entries))
	for idx, e := range entries {
		rank := idx + 1
		medal := "  "
		switch rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}
		fmt.Fprintf(&b, "%s %2d位: %6d点  %s\n", medal, rank, e.TotalScore, e.PlayerName)
	}
	b.WriteString("```")
	return b.String()
}

func RenderRank(tier game.Tier, r game.Rank, ok bool) string {
	if !ok {
		return fmt.Sprintf("%s ではまだランク外です。`/geo start tier:%s` で遊んでみましょう！", tier, tier)
	}
	return fmt.Sprintf("%s\n%s: **%d位** / %d人 (合計 %d点, 上位 %.0f%%)",
		leaderboard.RankingMessage(r.Position, r.Total), tier, r.Position, r.Total, r.Score, 100-r.Percentile())
}

func RenderProfile(p stats.Profile) string {
	if p.TotalGames == 0 {
		return "まだプレイ記録がありません"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 **%s の成績**\n", p.PlayerName)
	fmt.Fprintf(&b, "プレイ回数: %d / 合計: %d点 / 最高: %d点\n", p.TotalGames, p.TotalScore, p.BestScore)
	if p.AvgDistanceKm != nil {
		fmt.Fprintf(&b, "平均距離: %s\n", geoscore.FormatDistance(*p.AvgDistanceKm))
	}
	for _, tier := range game.Tiers() {
		ts := p.ByTier[tier]
		fmt.Fprintf(&b, "・%s: %d回 %d点\n", tier, ts.Games, ts.Score)
	}
	if len(p.Recent) > 0 {
		b.WriteString("最近のラウンド:\n")
		for _, g := range p.Recent {
			when := time.UnixMilli(g.TimestampMs).UTC().Format("2006-01-02 15:04")
			if g.TimedOut {
				fmt.Fprintf(&b, "  %s %s 時間切れ\n", when, g.Difficulty)
				continue
			}
			dist := "-"
			if g.DistanceKm != nil {
				dist = geoscore.FormatDistance(*g.DistanceKm)
			}
			fmt.Fprintf(&b, "  %s %s %d点 (%s)\n", when, g.Difficulty, g.Score, dist)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
