// Package doctor produces the canned lines of the research doctor. There is
// no language model behind it.
package doctor

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"paralleldex/internal/model"
)

const DefaultPlayerName = "調査員"

type Doctor struct {
	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(rng *rand.Rand) *Doctor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Doctor{rng: rng}
}

// Chat answers a question about a creature. The question itself only has
// to be non-empty; the reply is picked at random.
func (d *Doctor) Chat(c model.Creature, question, playerName string) string {
	name := strings.TrimSpace(playerName)
	if name == "" {
		name = DefaultPlayerName
	}
	replies := []string{
		fmt.Sprintf("ふむ、%s君。%sについて気になるとは、いい着眼点だ。", name, c.Name),
		fmt.Sprintf("その質問は非常に興味深い！%sの生物にはよく見られる特徴に関連しているかもしれないな。", c.Type.Label()),
		fmt.Sprintf("ワシの長年の研究でも、%sにはまだまだ謎が多いのだよ。一緒に解明していこうじゃないか。", c.Name),
		"なるほど...君の観察眼には驚かされるよ。その可能性は否定できないな。",
		"おっと、すまない。今は一時的に通信状態が不安定で、クラウド上の詳細データベースにはアクセスできないようだ。手元の資料だけで答えよう。",
	}
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return replies[d.rng.Intn(len(replies))]
}

// Decipher renders the lore analysis report for a discovered creature.
func Decipher(c model.Creature) string {
	var b strings.Builder
	b.WriteString("【解析完了】\n\n")
	fmt.Fprintf(&b, "対象：%s (%s)\n", c.Name, c.LatinName)
	fmt.Fprintf(&b, "分類：%s\n\n", c.Type.Label())
	b.WriteString("観測データに基づく追加レポート：\n")
	b.WriteString(c.ShortDesc)
	b.WriteString("\n\nこの生物は非常に特殊な生態系の一部であり、継続的な観測が推奨されます。現時点でのデータは以上です。")
	return b.String()
}
