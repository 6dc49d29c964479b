package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"paralleldex/internal/daytime"
	"paralleldex/internal/model"
)

const (
	bonusInterval    = time.Hour
	bonusChance      = 0.3
	buddyBonusChance = 0.8

	playerNameToken = "【ユーザー名】"
	triviaFallback  = "観察を続けることで新たな発見があるだろう。"
	doctorAdvice    = "アイテムは相棒に与えることで、より深い絆が生まれるぞ。同じ属性のアイテムだと効果が高いらしい。"
)

var newsTypes = []model.NewsType{model.NewsForecast, model.NewsTrivia, model.NewsAdvice, model.NewsLucky}

type LoginBonus struct {
	Item    model.Item `json:"item"`
	ByBuddy bool       `json:"by_buddy"`
	Message string     `json:"message"`
}

type CheckInResponse struct {
	TimeOfDay     model.TimeOfDay     `json:"time_of_day"`
	Bonus         *LoginBonus         `json:"bonus,omitempty"`
	News          model.NewsData      `json:"news"`
	Uncle         *model.UncleMessage `json:"uncle,omitempty"`
	DiscoveryRate int                 `json:"discovery_rate"`
}

// CheckIn runs the home-screen arrival: login bonus, the news of the day and
// any uncle letter that became due.
func (s *Service) CheckIn(ctx context.Context, playerID string) (CheckInResponse, error) {
	player, err := s.Player(playerID)
	if err != nil {
		return CheckInResponse{}, err
	}

	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	now := s.clock.Now()
	resp := CheckInResponse{TimeOfDay: daytime.PhaseAt(now)}

	if resp.Bonus, err = s.loginBonusLocked(ctx, playerID, now); err != nil {
		return CheckInResponse{}, err
	}
	discoveries, err := s.store.ListDiscoveries(playerID)
	if err != nil {
		return CheckInResponse{}, err
	}
	if resp.News, err = s.dailyNews(ctx, playerID, now, discoveries); err != nil {
		return CheckInResponse{}, err
	}
	if resp.Uncle, err = s.uncleLetter(ctx, player, len(discoveries)); err != nil {
		return CheckInResponse{}, err
	}
	resp.DiscoveryRate = DiscoveryRate(len(discoveries), s.catalog.Total())
	return resp, nil
}

// loginBonusLocked rolls the bonus when an hour has passed since the last
// recorded login. The first visit only records the time.
func (s *Service) loginBonusLocked(ctx context.Context, playerID string, now time.Time) (*LoginBonus, error) {
	key := "last_login:" + playerID
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read last login: %w", err)
	}
	record := func() error {
		if err := s.kv.Set(ctx, key, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
			return fmt.Errorf("record login: %w", err)
		}
		return nil
	}
	if !ok {
		return nil, record()
	}
	last, perr := strconv.ParseInt(raw, 10, 64)
	if perr != nil {
		s.log.WithField("player_id", playerID).WithField("value", raw).Warn("unreadable last login, resetting")
		return nil, record()
	}
	if now.Sub(time.UnixMilli(last)) < bonusInterval {
		return nil, nil
	}

	companion, hasBuddy, err := s.store.GetCompanion(playerID)
	if err != nil {
		return nil, err
	}
	chance := bonusChance
	if hasBuddy {
		chance = buddyBonusChance
	}

	var bonus *LoginBonus
	items := s.catalog.Items()
	if len(items) > 0 && s.chance(chance) {
		item := items[s.intn(len(items))]
		if _, err := s.store.AddItem(model.InventoryEntry{PlayerID: playerID, ItemID: item.ID, AcquiredAt: now}); err != nil {
			return nil, err
		}
		bonus = &LoginBonus{Item: item, ByBuddy: hasBuddy}
		if hasBuddy {
			bonus.Message = fmt.Sprintf("相棒の %s が %s を拾ってきた！", companion.Creature.Name, item.Name)
		} else {
			bonus.Message = fmt.Sprintf("おや？ %s が落ちている...", item.Name)
		}
		s.log.WithField("player_id", playerID).WithField("item_id", item.ID).Info("login bonus granted")
	}
	return bonus, record()
}

// dailyNews returns the stored news of the UTC day, generating it on first
// read.
func (s *Service) dailyNews(ctx context.Context, playerID string, now time.Time, discoveries []model.Discovery) (model.NewsData, error) {
	today := now.UTC().Format("2006-01-02")
	key := "news:" + playerID + ":" + today
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return model.NewsData{}, fmt.Errorf("read news: %w", err)
	}
	if ok {
		var news model.NewsData
		if err := json.Unmarshal([]byte(raw), &news); err == nil {
			return news, nil
		}
		s.log.WithField("key", key).Warn("discarding unreadable news")
	}

	news := s.generateNews(today, discoveries)
	data, err := json.Marshal(news)
	if err != nil {
		return model.NewsData{}, err
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return model.NewsData{}, fmt.Errorf("store news: %w", err)
	}
	return news, nil
}

func (s *Service) generateNews(date string, discoveries []model.Discovery) model.NewsData {
	news := model.NewsData{Date: date, Type: newsTypes[s.intn(len(newsTypes))]}
	switch news.Type {
	case model.NewsForecast:
		news.Title = "バイオ予報"
		if areas := s.catalog.Areas(); len(areas) > 0 {
			area := areas[s.intn(len(areas))]
			news.Content = fmt.Sprintf("本日は「%s」での観測により、レア生物発見の可能性が高まっています。", area.Label)
			news.BonusAreaID = area.ID
		}
	case model.NewsLucky:
		news.Title = "ラッキーアイテム"
		if items := s.catalog.Items(); len(items) > 0 {
			item := items[s.intn(len(items))]
			news.Content = fmt.Sprintf("本日のラッキーアイテムは「%s」です。所持していると良いことがあるかもしれません。", item.Name)
			news.LuckyItemID = item.ID
		}
	case model.NewsTrivia:
		news.Title = "豆知識"
		news.Content = s.triviaLine(discoveries)
	default:
		news.Title = "博士の助言"
		news.Content = doctorAdvice
	}
	return news
}

func (s *Service) triviaLine(discoveries []model.Discovery) string {
	var target model.Creature
	var ok bool
	if len(discoveries) > 0 {
		target, ok = s.catalog.Creature(discoveries[s.intn(len(discoveries))].CreatureID)
	} else if all := s.catalog.Creatures(); len(all) > 0 {
		target, ok = all[0], true
	}
	if !ok || len(target.Trivia) == 0 {
		return triviaFallback
	}
	return target.Trivia[s.intn(len(target.Trivia))]
}

// uncleLetter returns the letter of the highest milestone reached, once.
func (s *Service) uncleLetter(ctx context.Context, player model.Player, discovered int) (*model.UncleMessage, error) {
	if discovered == 0 {
		return nil, nil
	}
	var latest *model.UncleMessage
	for _, msg := range s.catalog.UncleMessages() {
		if discovered >= msg.Milestone {
			m := msg
			latest = &m
		}
	}
	if latest == nil {
		return nil, nil
	}

	key := uncleKey(player.ID)
	raw, _, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read uncle milestone: %w", err)
	}
	shown, _ := strconv.Atoi(raw)
	if latest.Milestone <= shown {
		return nil, nil
	}
	if err := s.kv.Set(ctx, key, strconv.Itoa(latest.Milestone)); err != nil {
		return nil, fmt.Errorf("store uncle milestone: %w", err)
	}
	latest.Body = strings.ReplaceAll(latest.Body, playerNameToken, player.Name)
	latest.Subject = strings.ReplaceAll(latest.Subject, playerNameToken, player.Name)
	return latest, nil
}

func uncleKey(playerID string) string {
	return "uncle_milestone:" + playerID
}

type ResetRequest struct {
	Discoveries bool `json:"discoveries"`
	Uncle       bool `json:"uncle"`
}

// DebugReset clears the journal or the uncle letter history. It is only
// available on servers started in debug mode.
func (s *Service) DebugReset(ctx context.Context, playerID string, req ResetRequest) error {
	if !s.debug {
		return ErrDebugDisabled
	}
	if _, err := s.Player(playerID); err != nil {
		return err
	}
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	if req.Discoveries {
		if err := s.store.ClearDiscoveries(playerID); err != nil {
			return err
		}
	}
	if req.Uncle {
		if err := s.kv.Set(ctx, uncleKey(playerID), "0"); err != nil {
			return err
		}
	}
	s.log.WithField("player_id", playerID).WithField("discoveries", req.Discoveries).WithField("uncle", req.Uncle).Warn("debug reset")
	return nil
}
