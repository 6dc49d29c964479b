package doctor_test

import (
	"math/rand"
	"strings"
	"testing"

	"paralleldex/internal/doctor"
	"paralleldex/internal/model"
)

func TestChatSubstitutesNames(t *testing.T) {
	t.Parallel()

	d := doctor.New(rand.New(rand.NewSource(1)))
	c := model.Creature{Name: "ふわふわ", Type: model.CreatureTypePark}
	seenName := false
	for i := 0; i < 50; i++ {
		reply := d.Chat(c, "なにを食べるの？", "")
		if reply == "" {
			t.Fatalf("empty reply")
		}
		if strings.Contains(reply, doctor.DefaultPlayerName+"君") {
			seenName = true
		}
	}
	if !seenName {
		t.Fatalf("default player name never used in 50 replies")
	}
}

func TestDecipherTemplate(t *testing.T) {
	t.Parallel()

	c := model.Creature{Name: "ふわふわ", LatinName: "Fluffus", Type: model.CreatureTypePark, ShortDesc: "やわらかい。"}
	got := doctor.Decipher(c)
	if !strings.HasPrefix(got, "【解析完了】\n\n対象：ふわふわ (Fluffus)\n") {
		t.Fatalf("unexpected header %q", got)
	}
	if !strings.Contains(got, "分類："+model.CreatureTypePark.Label()) || !strings.Contains(got, "やわらかい。") {
		t.Fatalf("missing fields in %q", got)
	}
}
