package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/webutan/lain/internal/game"
	"github.com/webutan/lain/internal/results"
)

var tierSquares = map[game.Tier]string{
	game.TierGreen:  "🟩",
	game.TierYellow: "🟨",
	game.TierOrange: "🟧",
	game.TierGray:   "⬜",
}

const blankSquare = "⬛"

func squares(ts []game.Tier) string {
	var b strings.Builder
	for _, t := range ts {
		b.WriteString(tierSquares[t])
	}
	return b.String()
}

// ---- chain ----

func modeTitle(m game.Mode) string {
	switch m {
	case game.ModeVsComputer:
		return "🤖 Shiritori vs Bot / ボットとしりとり"
	case game.ModeMultiplayer:
		return "👥 Multiplayer Shiritori / みんなでしりとり"
	default:
		return "🧺 Word Basket / ワードバスケット"
	}
}

func renderChainStart(st game.ChainState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\nGame started! / ゲーム開始！\n\n", modeTitle(st.Mode))
	if st.Mode == game.ModeWordBasket {
		fmt.Fprintf(&b, "Start with **%c** | End with **%c**\n「%c」で始まり「%c」で終わる言葉\n",
			st.StartKana, st.EndKana, st.StartKana, st.EndKana)
	} else {
		fmt.Fprintf(&b, "First word must start with: **%c**\n最初の言葉は「%c」で始めてください\n", st.StartKana, st.StartKana)
		b.WriteString("Words ending in ん lose! / 「ん」で終わる言葉は負け！\n")
	}
	b.WriteString("Use `/endgame` to end the game / `/endgame`でゲーム終了")
	return b.String()
}

func renderScores(scores map[string]int) string {
	if len(scores) == 0 {
		return "No scores yet"
	}
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = fmt.Sprintf("<@%s>: %d pts", id, scores[id])
	}
	return strings.Join(lines, "\n")
}

func renderAccepted(mode game.Mode, t *game.Turn, author string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **%s**\nReading / 読み: %s\nMeaning / 意味: %s\n", t.Move.Word, t.Move.Reading, t.Move.Gloss)
	switch mode {
	case game.ModeMultiplayer:
		fmt.Fprintf(&b, "\n**+1 point to %s!**\nNext word starts with: **%c** / 次は「%c」で始まる言葉\n", author, t.StartKana, t.StartKana)
	case game.ModeWordBasket:
		fmt.Fprintf(&b, "\n**+1 point to %s!**\nNext: start with **%c** | end with **%c**\n", author, t.StartKana, t.EndKana)
	}
	fmt.Fprintf(&b, "Chain: %d", chainBeforeComputer(t))
	if mode.Scored() {
		fmt.Fprintf(&b, " | Score: %d pts", t.Scores[t.Move.Player])
	}
	return b.String()
}

// chainBeforeComputer is the chain length right after the human's word.
func chainBeforeComputer(t *game.Turn) int {
	if t.Computer != nil {
		return t.ChainLength - 1
	}
	return t.ChainLength
}

func renderComputerMove(t *game.Turn) string {
	c := t.Computer
	return fmt.Sprintf("🤖 **%s**\nReading / 読み: %s\nMeaning / 意味: %s\n\nYour turn! Next word starts with: **%c**\nあなたの番！次は「%c」で始まる言葉\nChain: %d",
		c.Word, c.Reading, c.Gloss, t.StartKana, t.StartKana, t.ChainLength)
}

func renderHumanWins(t *game.Turn) string {
	return fmt.Sprintf("🎉 **You Win! / あなたの勝ち！**\nThe bot couldn't find a word starting with **%c**!\nボットは「%c」で始まる言葉が見つかりませんでした！\n\n**Final chain: %d words / 最終チェーン: %d語**",
		t.StartKana, t.StartKana, t.ChainLength, t.ChainLength)
}

func renderTerminal(mode game.Mode, t *game.Turn, author string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💀 **Game Over! / ゲームオーバー！**\n**%s** used a word ending in ん!\n「ん」で終わる言葉を使いました！\n\n", author)
	fmt.Fprintf(&b, "Word / 言葉: **%s** (%s)\nMeaning / 意味: %s\n\n", t.Move.Word, t.Move.Reading, t.Move.Gloss)
	fmt.Fprintf(&b, "**Final chain: %d words / 最終チェーン: %d語**", t.ChainLength, t.ChainLength)
	if mode.Scored() {
		fmt.Fprintf(&b, "\n\n**Scores / スコア:**\n%s", renderScores(t.Scores))
	}
	return b.String()
}

func renderEndGame(st game.ChainState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 **Game Over / ゲーム終了**\n**Final chain: %d words / 最終チェーン: %d語**\n\n", st.ChainLength, st.ChainLength)
	if st.Mode == game.ModeVsComputer {
		last := st.LastWord
		if last == "" {
			last = "None"
		}
		fmt.Fprintf(&b, "Last word / 最後の言葉: %s", last)
	} else {
		fmt.Fprintf(&b, "**Scores / スコア:**\n%s", renderScores(st.Scores))
	}
	return b.String()
}

func renderReject(re *game.RejectError, startKana, endKana rune) string {
	switch re.Reason {
	case game.ReasonNotFound:
		return "Word not found in dictionary / 辞書に見つかりません"
	case game.ReasonStartKanaMismatch:
		return fmt.Sprintf("Word must start with **%c** / 「%c」で始まる言葉を入力してください", startKana, startKana)
	case game.ReasonEndKanaMismatch:
		return fmt.Sprintf("Word must end with **%c** / 「%c」で終わる言葉を入力してください", endKana, endKana)
	case game.ReasonAlreadyUsed:
		return "Word already used! / この言葉はすでに使われています！"
	case game.ReasonAlreadyGuessed:
		return "Already guessed! / すでに推測しました！"
	case game.ReasonBadLength, game.ReasonNotKanji:
		return "Guess must be two kanji / 漢字二文字で答えてください"
	case game.ReasonBusy:
		return "Wait for the bot's move / ボットの番です"
	default:
		return re.Error()
	}
}

func rejectReaction(r game.Reason) string {
	switch r {
	case game.ReasonNotFound:
		return ReactNotFound
	case game.ReasonAlreadyUsed, game.ReasonAlreadyGuessed:
		return ReactUsed
	case game.ReasonBusy:
		return ReactBusy
	default:
		return ReactWrong
	}
}

// ---- compound puzzles ----

func renderCompoundStart(p *game.CompoundPuzzle) string {
	return fmt.Sprintf("**🀄 Waaduru / ワードル**\nGuess the two-kanji word in %d tries! / 漢字二文字の言葉を当てよう！\n"+
		"🟩 right kanji, right place  🟨 right kanji, wrong place  🟧 shares a radical  ⬜ no match\n%s",
		p.MaxGuesses(), blankRows(p.MaxGuesses()))
}

func blankRows(n int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = blankSquare + blankSquare
	}
	return strings.Join(rows, "\n")
}

func renderBoard(s game.PuzzleState, withWords bool) string {
	var lines []string
	for _, r := range s.Rows {
		line := squares(r.Tiers())
		if withWords {
			line += " " + r.Word
		}
		lines = append(lines, line)
	}
	for i := 0; i < s.Remaining; i++ {
		lines = append(lines, blankSquare+blankSquare)
	}
	out := strings.Join(lines, "\n")
	if withWords {
		out += renderDiscovered(s.Discovered)
	}
	return out
}

func renderDiscovered(d [2][]string) string {
	if len(d[0]) == 0 && len(d[1]) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nRadicals found / 見つけた部首:")
	for i, set := range d {
		if len(set) > 0 {
			fmt.Fprintf(&b, "\n  %d: %s", i+1, strings.Join(set, " "))
		}
	}
	return b.String()
}

func renderPuzzleEnd(state game.State, answer, reading, gloss string, guesses int) string {
	if state == game.StateWon {
		return fmt.Sprintf("🎉 Solved in %d! / 正解！ **%s** (%s) %s", guesses, answer, reading, gloss)
	}
	return fmt.Sprintf("The answer was / 正解は **%s** (%s) %s", answer, reading, gloss)
}

func renderKanjiStart(p *game.KanjiPuzzle) string {
	h := p.Hints()
	return fmt.Sprintf("**🈁 Kanji Puzzle / 漢字パズル**\nGuess the two-kanji word in %d tries!\nHint radicals / ヒントの部首:\n  1: %s\n  2: %s",
		p.MaxGuesses(), strings.Join(h[0], " "), strings.Join(h[1], " "))
}

func renderKanjiRows(rows []game.KanjiRow, remaining int) string {
	var lines []string
	for _, r := range rows {
		lines = append(lines, squares(r.Marks)+" "+r.Word)
	}
	for i := 0; i < remaining; i++ {
		lines = append(lines, blankSquare+blankSquare)
	}
	return strings.Join(lines, "\n")
}

// renderPublicDaily draws the shared daily board: tiers and blanks only.
func renderPublicDaily(v game.PublicView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**📅 Daily Waaduru %s** <@%s>\n", v.Date, v.OwnerID)
	for _, r := range v.Rows {
		b.WriteString(squares(r))
		b.WriteByte('\n')
	}
	for i := 0; i < v.Remaining; i++ {
		b.WriteString(blankSquare + blankSquare + "\n")
	}
	switch v.State {
	case game.StateWon:
		fmt.Fprintf(&b, "Solved in %d/%d!", len(v.Rows), v.MaxGuesses)
	case game.StateLost:
		fmt.Fprintf(&b, "X/%d", v.MaxGuesses)
	default:
		fmt.Fprintf(&b, "%d/%d", len(v.Rows), v.MaxGuesses)
	}
	return b.String()
}

func renderHistory(rows []results.Summary) string {
	if len(rows) == 0 {
		return "No finished games in this channel yet. / まだ記録がありません。"
	}
	var b strings.Builder
	b.WriteString("**Recent games / 最近のゲーム**")
	for _, r := range rows {
		fmt.Fprintf(&b, "\n%s  %s  chain %d  (%s)", r.EndedAt.Format("2006-01-02 15:04"), r.Mode, r.ChainLength, r.Reason)
	}
	return b.String()
}
